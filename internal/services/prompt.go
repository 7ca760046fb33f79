package services

import (
	"fmt"
	"strconv"
	"strings"

	"deal-finder-api/internal/models"
)

const promptTemplate = `You are a JSON generation API. Your single task is to find simulated e-commerce deals for a product and return them as a valid JSON array.

Product to search for: %s

Rules:
1. Find 5-7 fictional but realistic deals on Indian e-commerce platforms (%s).
2. The output MUST be a single, valid JSON array. Do not include any text, explanations, or markdown code fences like ` + "```json" + `.
3. CRITICAL: All strings inside the JSON must be correctly escaped. If a string contains a double quote ("), it MUST be escaped with a backslash (\"). See the example below.
4. Each object in the array must have exactly these fields:
   - "productName": string
   - "platform": one of %s
   - "price": plain number in INR, no currency symbol, no thousands separators
   - "rating": number between 0 and 5
   - "imageUrl": string, placeholder URL
   - "productUrl": string, placeholder URL

Example for "27 inch monitor":
[
  {
    "productName": "LG UltraGear 27\" QHD Gaming Monitor",
    "platform": "Amazon.in",
    "price": 24999,
    "rating": 4.7,
    "imageUrl": "https://picsum.photos/seed/lgmonitor/400/400",
    "productUrl": "#"
  },
  {
    "productName": "Samsung Odyssey G5 27-inch",
    "platform": "Flipkart",
    "price": 22500,
    "rating": 4.5,
    "imageUrl": "https://picsum.photos/seed/samsungmonitor/400/400",
    "productUrl": "#"
  },
  {
    "productName": "BenQ EX2780Q 27 Inch 1440p",
    "platform": "Croma",
    "price": 28990,
    "rating": 4.6,
    "imageUrl": "https://picsum.photos/seed/benqmonitor/400/400",
    "productUrl": "#"
  }
]
`

// BuildPrompt renders the model instruction for productName. The name is
// quoted so embedded quotes cannot terminate it early. Empty names are not
// rejected here.
func BuildPrompt(productName string) string {
	quoted := make([]string, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		quoted = append(quoted, "'"+string(p)+"'")
	}
	platforms := strings.Join(quoted, ", ")

	return fmt.Sprintf(promptTemplate, strconv.Quote(productName), platforms, platforms)
}
