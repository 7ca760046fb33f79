package models

// Phase is the controller's current step in a search.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// SortKey orders the displayed deals.
type SortKey string

const (
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortRatingDesc SortKey = "rating-desc"
)

// AllPlatforms is the filter value that disables platform filtering.
const AllPlatforms = "All"

type SortOption struct {
	Value SortKey `json:"value"`
	Label string  `json:"label"`
}

// SortOptions is the fixed list offered to the user, in display order.
var SortOptions = []SortOption{
	{Value: SortPriceAsc, Label: "Price: Low to High"},
	{Value: SortPriceDesc, Label: "Price: High to Low"},
	{Value: SortRatingDesc, Label: "Rating: High to Low"},
}

func (k SortKey) IsValid() bool {
	switch k {
	case SortPriceAsc, SortPriceDesc, SortRatingDesc:
		return true
	}
	return false
}

// Selection is the user's current filter and sort choice.
type Selection struct {
	Platform string  `json:"platform"`
	Sort     SortKey `json:"sort"`
}

// DefaultSelection is applied at the start of every search.
func DefaultSelection() Selection {
	return Selection{Platform: AllPlatforms, Sort: SortPriceAsc}
}

// SessionView is everything the presentation layer needs to paint one session.
type SessionView struct {
	ID          string       `json:"id,omitempty"`
	Revision    uint64       `json:"revision"`
	State       Phase        `json:"state"`
	Query       string       `json:"query,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorKind   string       `json:"errorKind,omitempty"`
	Notice      string       `json:"notice,omitempty"`
	Selection   Selection    `json:"selection"`
	Platforms   []string     `json:"platforms"`
	SortOptions []SortOption `json:"sortOptions"`
	BestDeal    *Deal        `json:"bestDeal,omitempty"`
	Deals       []DealCard   `json:"deals"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type FilterRequest struct {
	Platform string `json:"platform" binding:"required"`
}

type SortRequest struct {
	Sort SortKey `json:"sort" binding:"required"`
}
