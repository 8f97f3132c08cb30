package offer

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

// Mutation: изменение предложения, применяемое через Controller.Apply.
// Набор мутаций закрыт: реализации есть только в этом пакете.
type Mutation interface {
	apply(o *model.Offer) error
}

// UpdateClient частично обновляет данные клиента. nil-поля не меняются.
type UpdateClient struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	Country       *string `json:"country,omitempty"`
	VATNumber     *string `json:"vatNumber,omitempty" validate:"omitempty,vatnumber"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
}

func (m UpdateClient) apply(o *model.Offer) error {
	setString(&o.Client.Name, m.Name)
	setString(&o.Client.ContactPerson, m.ContactPerson)
	setString(&o.Client.Address, m.Address)
	setString(&o.Client.City, m.City)
	setString(&o.Client.Country, m.Country)
	setString(&o.Client.VATNumber, m.VATNumber)
	setString(&o.Client.Email, m.Email)
	setString(&o.Client.Phone, m.Phone)
	return nil
}

// ReplaceClient целиком заменяет раздел клиента (импорт из справочника).
type ReplaceClient struct {
	Client model.ClientInfo
}

func (m ReplaceClient) apply(o *model.Offer) error {
	o.Client = m.Client
	return nil
}

// UpdateDetails частично обновляет реквизиты предложения.
type UpdateDetails struct {
	OfferNumber          *string  `json:"offerNumber,omitempty"`
	Date                 *string  `json:"date,omitempty"`
	ValidUntil           *string  `json:"validUntil,omitempty"`
	Notes                *string  `json:"notes,omitempty"`
	VATRate              *float64 `json:"vatRate,omitempty"`
	TransportCost        *float64 `json:"transportCost,omitempty"`
	OtherCosts           *float64 `json:"otherCosts,omitempty"`
	ShowPartNumber       *bool    `json:"showPartNumber,omitempty"`
	IncludeVAT           *bool    `json:"includeVat,omitempty"`
	ShowDigitalSignature *bool    `json:"showDigitalSignature,omitempty"`
	CustomFooter         *string  `json:"customFooter,omitempty"`
	Currency             *string  `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Language             *string  `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

func (m UpdateDetails) apply(o *model.Offer) error {
	if m.VATRate != nil && !validRate(*m.VATRate) {
		return ErrInvalidVATRate
	}
	if !validAmountPtr(m.TransportCost) || !validAmountPtr(m.OtherCosts) {
		return ErrInvalidAmount
	}

	d := &o.Details
	setString(&d.OfferNumber, m.OfferNumber)
	setString(&d.Date, m.Date)
	setString(&d.ValidUntil, m.ValidUntil)
	setString(&d.Notes, m.Notes)
	setFloat(&d.VATRate, m.VATRate)
	setFloat(&d.TransportCost, m.TransportCost)
	setFloat(&d.OtherCosts, m.OtherCosts)
	setBool(&d.ShowPartNumber, m.ShowPartNumber)
	setBool(&d.IncludeVAT, m.IncludeVAT)
	setBool(&d.ShowDigitalSignature, m.ShowDigitalSignature)
	setString(&d.CustomFooter, m.CustomFooter)
	if m.Currency != nil {
		d.Currency = strings.ToUpper(strings.TrimSpace(*m.Currency))
	}
	setString(&d.Language, m.Language)

	if strings.TrimSpace(d.OfferNumber) == "" {
		d.OfferNumber = model.OfferNumberUnset
	}
	return nil
}

// AddProduct добавляет строку в конец списка. Пустой ID генерируется.
type AddProduct struct {
	Product model.Product
}

func (m AddProduct) apply(o *model.Offer) error {
	p := m.Product
	if !validAmount(p.Quantity) || !validAmount(p.UnitPrice) {
		return ErrInvalidAmount
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, existing := range o.Products {
		if existing.ID == p.ID {
			return ErrDuplicateProduct
		}
	}
	o.Products = append(o.Products, p)
	return nil
}

// UpdateProduct частично обновляет строку с указанным ID.
type UpdateProduct struct {
	ID          string   `json:"-"`
	Name        *string  `json:"name,omitempty"`
	PartNumber  *string  `json:"partNumber,omitempty"`
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
}

func (m UpdateProduct) apply(o *model.Offer) error {
	if !validAmountPtr(m.Quantity) || !validAmountPtr(m.UnitPrice) {
		return ErrInvalidAmount
	}

	i := indexOf(o.Products, m.ID)
	if i < 0 {
		return ErrProductNotFound
	}

	p := &o.Products[i]
	setString(&p.Name, m.Name)
	setString(&p.PartNumber, m.PartNumber)
	setString(&p.Description, m.Description)
	setFloat(&p.Quantity, m.Quantity)
	setFloat(&p.UnitPrice, m.UnitPrice)
	return nil
}

// RemoveProduct удаляет строку с указанным ID.
type RemoveProduct struct {
	ID string
}

func (m RemoveProduct) apply(o *model.Offer) error {
	i := indexOf(o.Products, m.ID)
	if i < 0 {
		return ErrProductNotFound
	}
	o.Products = append(o.Products[:i], o.Products[i+1:]...)
	return nil
}

// ReorderProducts задаёт новый порядок строк. IDs должен быть перестановкой текущих ID.
type ReorderProducts struct {
	IDs []string `json:"ids"`
}

func (m ReorderProducts) apply(o *model.Offer) error {
	if len(m.IDs) != len(o.Products) {
		return ErrInvalidOrder
	}

	byID := make(map[string]model.Product, len(o.Products))
	for _, p := range o.Products {
		byID[p.ID] = p
	}

	reordered := make([]model.Product, 0, len(m.IDs))
	for _, id := range m.IDs {
		p, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		delete(byID, id)
		reordered = append(reordered, p)
	}
	o.Products = reordered
	return nil
}

func indexOf(products []model.Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validAmountPtr(v *float64) bool {
	return v == nil || validAmount(*v)
}

func validRate(v float64) bool {
	return validAmount(v) && v <= 100
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
