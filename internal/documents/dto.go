package documents

import "time"

// ProductLineRequest is one traded row on the wire.
type ProductLineRequest struct {
	ItemID    string  `json:"itemId" validate:"required"`
	Name      string  `json:"itemName"`
	Brand     string  `json:"brandName"`
	Category  string  `json:"category"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

// PaymentRequest is an immediate payment embedded in a create.
type PaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required"`
	Remark string  `json:"remark"`
}

// CreateDocumentRequest is the boundary payload for a new document.
type CreateDocumentRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=BILL PURCHASE RETURN DAMAGE"`
	Number    string `json:"number"`
	PartyKind string `json:"partyKind" validate:"omitempty,oneof=CUSTOMER SUPPLIER"`
	PartyID   string `json:"partyId"`
	PartyName string `json:"partyName"`

	SellerID     string  `json:"sellerId"`
	SellerName   string  `json:"sellerName"`
	SellerAmount float64 `json:"sellerAmount" validate:"gte=0"`

	TransportID     string  `json:"transportId"`
	TransportName   string  `json:"transportName"`
	TransportAmount float64 `json:"transportAmount" validate:"gte=0"`

	Date        string               `json:"date"`
	SubmittedBy string               `json:"submittedBy" validate:"required"`
	Remark      string               `json:"remark"`
	Lines       []ProductLineRequest `json:"lines" validate:"required,min=1,dive"`
	Payment     *PaymentRequest      `json:"payment" validate:"omitempty"`
}

// EditDocumentRequest is the boundary payload for an edit.
type EditDocumentRequest struct {
	PartyID   string `json:"partyId"`
	PartyName string `json:"partyName"`

	SellerID     string  `json:"sellerId"`
	SellerName   string  `json:"sellerName"`
	SellerAmount float64 `json:"sellerAmount" validate:"gte=0"`

	TransportID     string  `json:"transportId"`
	TransportName   string  `json:"transportName"`
	TransportAmount float64 `json:"transportAmount" validate:"gte=0"`

	Date        string               `json:"date"`
	SubmittedBy string               `json:"submittedBy" validate:"required"`
	Remark      string               `json:"remark"`
	Lines       []ProductLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ProductLineDTO is one traded row in responses.
type ProductLineDTO struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"itemName"`
	Brand     string  `json:"brandName,omitempty"`
	Category  string  `json:"category,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Amount    float64 `json:"amount"`
}

// DocumentResponse is a document on the wire.
type DocumentResponse struct {
	Number    string `json:"number"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	PartyKind string `json:"partyKind,omitempty"`
	PartyID   string `json:"partyId,omitempty"`
	PartyName string `json:"partyName,omitempty"`

	SellerID     string  `json:"sellerId,omitempty"`
	SellerName   string  `json:"sellerName,omitempty"`
	SellerAmount float64 `json:"sellerAmount,omitempty"`

	TransportID     string  `json:"transportId,omitempty"`
	TransportName   string  `json:"transportName,omitempty"`
	TransportAmount float64 `json:"transportAmount,omitempty"`

	Total       float64          `json:"total"`
	Date        time.Time        `json:"date"`
	SubmittedBy string           `json:"submittedBy"`
	Remark      string           `json:"remark,omitempty"`
	Lines       []ProductLineDTO `json:"lines"`
}

// NewDocumentResponse maps a document to its wire shape.
func NewDocumentResponse(doc *Document) DocumentResponse {
	resp := DocumentResponse{
		Number:          doc.Number,
		Kind:            string(doc.Kind),
		Status:          string(doc.Status),
		PartyKind:       string(doc.PartyKind),
		PartyID:         doc.PartyID,
		PartyName:       doc.PartyName,
		SellerID:        doc.SellerID,
		SellerName:      doc.SellerName,
		SellerAmount:    doc.SellerAmount,
		TransportID:     doc.TransportID,
		TransportName:   doc.TransportName,
		TransportAmount: doc.TransportAmount,
		Total:           doc.Total,
		Date:            doc.Date,
		SubmittedBy:     doc.SubmittedBy,
		Remark:          doc.Remark,
		Lines:           make([]ProductLineDTO, 0, len(doc.Lines)),
	}
	for _, l := range doc.Lines {
		resp.Lines = append(resp.Lines, ProductLineDTO{
			ItemID: l.ItemID, Name: l.Name, Brand: l.Brand, Category: l.Category,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Amount: l.Amount,
		})
	}
	return resp
}

func linesFromRequest(lines []ProductLineRequest) []ProductLine {
	out := make([]ProductLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, ProductLine{
			ItemID: l.ItemID, Name: l.Name, Brand: l.Brand, Category: l.Category,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Amount: l.Amount,
		})
	}
	return out
}
