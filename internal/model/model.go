// Package model содержит доменные сущности сервиса коммерческих предложений.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// OfferNumberUnset: зарезервированное значение номера предложения, означающее «номер не задан».
const OfferNumberUnset = "UNSET"

const (
	// DefaultCurrency используется, если валюта предложения не указана.
	DefaultCurrency = "EUR"
	// DefaultLanguage используется, если язык предложения не указан.
	DefaultLanguage = "en"
)

// User представляет зарегистрированного пользователя.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Identity описывает текущего пользователя сессии редактирования.
type Identity struct {
	UserID        int64
	Authenticated bool
}

// ClientInfo содержит данные клиента, которому адресовано предложение.
type ClientInfo struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	VATNumber     string `json:"vatNumber,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Product: строка предложения.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PartNumber  string  `json:"partNumber,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// OfferDetails содержит реквизиты предложения и настройки расчёта.
type OfferDetails struct {
	OfferNumber          string  `json:"offerNumber"`
	Date                 string  `json:"date,omitempty"`
	ValidUntil           string  `json:"validUntil,omitempty"`
	Notes                string  `json:"notes,omitempty"`
	VATRate              float64 `json:"vatRate"`
	TransportCost        float64 `json:"transportCost"`
	OtherCosts           float64 `json:"otherCosts"`
	ShowPartNumber       bool    `json:"showPartNumber"`
	IncludeVAT           bool    `json:"includeVat"`
	ShowDigitalSignature bool    `json:"showDigitalSignature"`
	CustomFooter         string  `json:"customFooter,omitempty"`
	Currency             string  `json:"currency"`
	Language             string  `json:"language"`
}

// HasOfferNumber сообщает, задан ли номер предложения.
func (d OfferDetails) HasOfferNumber() bool {
	n := strings.TrimSpace(d.OfferNumber)
	return n != "" && n != OfferNumberUnset
}

// Offer: корневой агрегат редактируемого предложения.
type Offer struct {
	Client    ClientInfo   `json:"client"`
	Products  []Product    `json:"products"`
	Details   OfferDetails `json:"details"`
	IsDraft   bool         `json:"isDraft"`
	DraftCode string       `json:"draftCode,omitempty"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
	LastSaved *time.Time   `json:"lastSaved,omitempty"`
}

// NewOffer возвращает пустой черновик со значениями по умолчанию.
func NewOffer() Offer {
	return Offer{
		Products: []Product{},
		Details: OfferDetails{
			OfferNumber: OfferNumberUnset,
			Currency:    DefaultCurrency,
			Language:    DefaultLanguage,
		},
		IsDraft: true,
	}
}

// IsMeaningful сообщает, содержит ли предложение данные, ради которых его стоит сохранять и восстанавливать.
func (o Offer) IsMeaningful() bool {
	return strings.TrimSpace(o.Client.Name) != "" ||
		len(o.Products) > 0 ||
		strings.TrimSpace(o.Details.Notes) != "" ||
		o.Details.HasOfferNumber()
}

// Clone возвращает копию предложения, не разделяющую память с оригиналом.
func (o Offer) Clone() Offer {
	c := o
	c.Products = make([]Product, len(o.Products))
	copy(c.Products, o.Products)
	if o.CreatedAt != nil {
		t := *o.CreatedAt
		c.CreatedAt = &t
	}
	if o.LastSaved != nil {
		t := *o.LastSaved
		c.LastSaved = &t
	}
	return c
}

// DecodeOffer разбирает сериализованное предложение. Отсутствующие поля получают значения
// по умолчанию, неизвестные поля игнорируются.
func DecodeOffer(data []byte) (Offer, error) {
	o := NewOffer()
	if err := json.Unmarshal(data, &o); err != nil {
		return Offer{}, err
	}
	if o.Products == nil {
		o.Products = []Product{}
	}
	if strings.TrimSpace(o.Details.Currency) == "" {
		o.Details.Currency = DefaultCurrency
	}
	if strings.TrimSpace(o.Details.Language) == "" {
		o.Details.Language = DefaultLanguage
	}
	return o, nil
}

// Totals: результат расчёта итогов предложения.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	VATAmount  float64 `json:"vatAmount"`
	Transport  float64 `json:"transport"`
	OtherCosts float64 `json:"otherCosts"`
	GrandTotal float64 `json:"grandTotal"`
}

// FormattedTotals содержит итоги, отформатированные для языка и валюты предложения.
type FormattedTotals struct {
	Subtotal   string `json:"subtotal"`
	VATAmount  string `json:"vatAmount"`
	Transport  string `json:"transport"`
	OtherCosts string `json:"otherCosts"`
	GrandTotal string `json:"grandTotal"`
}

// SavedOffer: предложение, сохранённое в удалённом хранилище.
type SavedOffer struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"-"`
	Offer     Offer     `json:"offer_data"`
	IsDraft   bool      `json:"is_draft"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SavedClient: клиент из справочника пользователя.
type SavedClient struct {
	ID        string     `json:"id"`
	OwnerID   int64      `json:"-"`
	Client    ClientInfo `json:"client"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SavedProduct: товар из каталога пользователя.
type SavedProduct struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"-"`
	Name        string    `json:"name"`
	PartNumber  string    `json:"partNumber,omitempty"`
	Description string    `json:"description,omitempty"`
	UnitPrice   float64   `json:"unitPrice"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DraftSource указывает, из какого хранилища взят черновик.
type DraftSource string

const (
	DraftSourceRemote DraftSource = "remote"
	DraftSourceLocal  DraftSource = "local"
	DraftSourceNone   DraftSource = "none"
)

// DraftCheck: результат проверки наличия черновика.
type DraftCheck struct {
	Exists    bool        `json:"exists"`
	Source    DraftSource `json:"source"`
	DraftCode string      `json:"draftCode,omitempty"`
	RemoteErr error       `json:"-"`
}

// DraftCandidate: черновик, выбранный для продолжения редактирования.
type DraftCandidate struct {
	Offer   Offer
	Source  DraftSource
	DraftID string
}
