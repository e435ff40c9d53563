package sampler

// SelectionType tags a Metadata record with the selection policy kind.
type SelectionType string

const (
	SelectionAll      SelectionType = "ALL"
	SelectionSpecific SelectionType = "SPECIFIC"
	SelectionRegex    SelectionType = "REGEX"
)

// Metadata is the serializable description of a selection policy,
// embedded in exported profiles so a reader can tell how the thread
// scope was chosen. Only the fields relevant to Type are populated:
// resolved numeric ids for SPECIFIC (never names), pattern source text
// for REGEX (invalid patterns dropped at construction never appear).
type Metadata struct {
	Type      SelectionType `json:"type"`
	ThreadIDs []int64       `json:"ids,omitempty"`
	Patterns  []string      `json:"patterns,omitempty"`
}
