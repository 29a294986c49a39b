package cart

import (
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// AddItemRequest is the payload of POST /api/v1/cart/items. Wholesale
// customers send package counts; everyone else sends a presentation and quantity.
type AddItemRequest struct {
	ProductID       string `json:"productId" validate:"required"`
	Grind           string `json:"grind" validate:"omitempty,oneof=whole coarse medium fine espresso nespresso"`
	Presentation    string `json:"presentation" validate:"omitempty,oneof=quarter half full"`
	Quantity        int    `json:"quantity" validate:"gte=0,lte=999"`
	QuarterQuantity int    `json:"quarterQuantity" validate:"gte=0,lte=999"`
	FullQuantity    int    `json:"fullQuantity" validate:"gte=0,lte=999"`
}

var addItemMessages = map[string]string{
	"productId":    "Selecciona un producto",
	"grind":        "Selecciona una molienda válida",
	"presentation": "Selecciona una presentación válida",
}

// Selection validates the request and builds the selection for the customer type.
func (r AddItemRequest) Selection(wholesale bool) (Grind, Selection, error) {
	if err := common.ValidateStruct(r, addItemMessages); err != nil {
		return "", nil, err
	}
	if wholesale {
		if r.QuarterQuantity+r.FullQuantity <= 0 {
			return "", nil, common.ValidationError("Selecciona al menos un paquete", map[string]string{
				"quarterQuantity": "Indica la cantidad de paquetes de 1/4 kg o 1 kg",
				"fullQuantity":    "Indica la cantidad de paquetes de 1/4 kg o 1 kg",
			})
		}
		return Grind(r.Grind), Wholesale{Quarter: r.QuarterQuantity, Full: r.FullQuantity}, nil
	}
	return Grind(r.Grind), Regular{Presentation: pricing.Presentation(r.Presentation), Quantity: r.Quantity}, nil
}
