package models

// Platform is the storefront a deal is listed on.
type Platform string

const (
	PlatformFlipkart        Platform = "Flipkart"
	PlatformAmazonIN        Platform = "Amazon.in"
	PlatformTataCliq        Platform = "Tata Cliq"
	PlatformRelianceDigital Platform = "Reliance Digital"
	PlatformCroma           Platform = "Croma"
	PlatformOther           Platform = "Other"
)

// Platforms lists every platform the model is allowed to return.
var Platforms = []Platform{
	PlatformFlipkart,
	PlatformAmazonIN,
	PlatformTataCliq,
	PlatformRelianceDigital,
	PlatformCroma,
	PlatformOther,
}

// IsValid reports whether p is one of the known platforms.
func (p Platform) IsValid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Deal is one validated listing returned by the model.
type Deal struct {
	ID          int      `json:"id"` // index in the model's array, assigned at parse time
	ProductName string   `json:"productName"`
	Platform    Platform `json:"platform"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	ImageURL    string   `json:"imageUrl"`
	ProductURL  string   `json:"productUrl"`
}

// DealCard is a deal as handed to the presentation layer.
type DealCard struct {
	Deal
	PriceLabel  string `json:"priceLabel"`
	RatingLabel string `json:"ratingLabel"`
	IsBestDeal  bool   `json:"isBestDeal"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
