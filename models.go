package csda

import (
	"encoding/json"
	"strconv"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/tidwall/gjson"
)

// QuotaUnit is the unit of a vendor quota.
type QuotaUnit string

// Quota units.
const (
	QuotaUnitArea     QuotaUnit = "area"
	QuotaUnitFilesize QuotaUnit = "filesize"
)

// Profile is a CSDA user profile.
//
// Use [Client.Profile] to fetch it:
//
//	profile, err := client.Profile(ctx, "jdoe")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, v := range profile.Vendors {
//	    fmt.Printf("%s approved=%t\n", v.Slug, v.Approved)
//	}
type Profile struct {
	EarthdataUsername string `json:"earthdata_username"`

	// Title is optional and may be null.
	Title *string `json:"title"`

	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	FundingAgency string          `json:"funding_agency"`
	CreatedAt     strfmt.DateTime `json:"created_at"`
	UpdatedAt     strfmt.DateTime `json:"updated_at"`
	ResearchArea  string          `json:"research_area"`
	Justification string          `json:"justification"`
	NDASigned     bool            `json:"nda_signed"`

	ReducedLatencyData          bool   `json:"reduced_latency_data"`
	ReducedLatencyJustification string `json:"reduced_latency_justification"`

	SupportingInstitution string          `json:"supporting_institution"`
	Vendors               []ProfileVendor `json:"vendors"`
	Grants                []Grant         `json:"grants"`
}

// DisplayName returns the user's name, prefixed with the title if set.
func (p *Profile) DisplayName() string {
	name := p.FirstName + " " + p.LastName
	if title := swag.StringValue(p.Title); title != "" {
		return title + " " + name
	}
	return name
}

// Vendor returns the vendor with the given slug, or nil.
func (p *Profile) Vendor(slug string) *ProfileVendor {
	for i := range p.Vendors {
		if p.Vendors[i].Slug == slug {
			return &p.Vendors[i]
		}
	}
	return nil
}

// MarshalBinary interface implementation
func (p *Profile) MarshalBinary() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return swag.WriteJSON(p)
}

// UnmarshalBinary interface implementation
func (p *Profile) UnmarshalBinary(b []byte) error {
	var res Profile
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*p = res
	return nil
}

// ProfileVendor is a user's access to one vendor's data.
type ProfileVendor struct {
	Vendor          string      `json:"vendor"`
	Slug            string      `json:"slug"`
	Quota           int64       `json:"quota"`
	QuotaUnit       QuotaUnit   `json:"quota_unit"`
	Approved        bool        `json:"approved"`
	ApprovedDate    strfmt.Date `json:"approved_date"`
	ExpirationDate  strfmt.Date `json:"expiration_date"`
	Notes           string      `json:"notes"`
	PreviewApproved bool        `json:"preview_approved"`
}

// Grant is a funding grant attached to a profile or proposal.
type Grant struct {
	ID          int          `json:"id"`
	GrantNumber string       `json:"grant_number"`
	StartDate   *strfmt.Date `json:"start_date"`
	EndDate     *strfmt.Date `json:"end_date"`
}

// Vendor is a commercial data vendor.
type Vendor struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	FullName   string `json:"full_name"`
	Slug       string `json:"slug"`
	HasTasking bool   `json:"has_tasking"`
}

// MarshalBinary interface implementation
func (v *Vendor) MarshalBinary() ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return swag.WriteJSON(v)
}

// UnmarshalBinary interface implementation
func (v *Vendor) UnmarshalBinary(b []byte) error {
	var res Vendor
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*v = res
	return nil
}

// Product is a vendor product.
type Product struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	LongDesc string `json:"long_desc"`
}

// MarshalBinary interface implementation
func (p *Product) MarshalBinary() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return swag.WriteJSON(p)
}

// UnmarshalBinary interface implementation
func (p *Product) UnmarshalBinary(b []byte) error {
	var res Product
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*p = res
	return nil
}

// CreateTaskingProposal is the body of a new tasking proposal.
//
// Example:
//
//	proposal := &csda.CreateTaskingProposal{
//	    Name: "Flood extent",
//	    Products: []csda.CreateTaskingProductRequest{
//	        {Product: 12, NProposedGranules: 4},
//	    },
//	    ResearchDescription:  "...",
//	    TaskingJustification: "...",
//	    Grant:                3,
//	}
//	created, err := client.CreateTaskingProposal(ctx, proposal, false)
type CreateTaskingProposal struct {
	Name                 string                        `json:"name"`
	Products             []CreateTaskingProductRequest `json:"products"`
	ResearchDescription  string                        `json:"research_description"`
	TaskingJustification string                        `json:"tasking_justification"`
	Grant                int                           `json:"grant"`
}

// CreateTaskingProductRequest asks for granules of one product.
type CreateTaskingProductRequest struct {
	Product           int `json:"product"`
	NProposedGranules int `json:"n_proposed_granules"`
}

// Validate validates this create tasking proposal
func (m *CreateTaskingProposal) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.RequiredString("name", "body", m.Name); err != nil {
		res = append(res, err)
	}

	if err := validate.MinItems("products", "body", int64(len(m.Products)), 1); err != nil {
		res = append(res, err)
	}

	for i, p := range m.Products {
		if err := validate.MinimumInt(proposalProductPath(i, "product"), "body", int64(p.Product), 1, false); err != nil {
			res = append(res, err)
		}
		if err := validate.MinimumInt(proposalProductPath(i, "n_proposed_granules"), "body", int64(p.NProposedGranules), 1, false); err != nil {
			res = append(res, err)
		}
	}

	if err := validate.MinimumInt("grant", "body", int64(m.Grant), 1, false); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

func proposalProductPath(i int, field string) string {
	return "products." + strconv.Itoa(i) + "." + field
}

// MarshalBinary interface implementation
func (m *CreateTaskingProposal) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *CreateTaskingProposal) UnmarshalBinary(b []byte) error {
	var res CreateTaskingProposal
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// TaskingProposal is a tasking proposal as stored by CSDA.
type TaskingProposal struct {
	ID                   int                     `json:"id"`
	ProposalProducts     []TaskingProductRequest `json:"proposal_products"`
	IsDraft              bool                    `json:"is_draft"`
	Grant                Grant                   `json:"grant"`
	User                 string                  `json:"user"`
	Name                 string                  `json:"name"`
	ResearchDescription  string                  `json:"research_description"`
	TaskingJustification string                  `json:"tasking_justification"`
	FinalDecisionType    string                  `json:"final_decision_type"`

	// DecisionDetails is null until a decision is made.
	DecisionDetails *string `json:"decision_details"`
}

// TaskingProductRequest is one product of a stored proposal.
type TaskingProductRequest struct {
	Product           Product `json:"product"`
	NProposedGranules int     `json:"n_proposed_granules"`

	// NAllocatedGranules is null until granules are allocated.
	NAllocatedGranules *int `json:"n_allocated_granules"`
}

// MarshalBinary interface implementation
func (m *TaskingProposal) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *TaskingProposal) UnmarshalBinary(b []byte) error {
	var res TaskingProposal
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// OrderParameters describes the parameters a product accepts in
// [OrderPayload.OrderParameters]. The document is product specific, so it
// is kept as raw JSON.
type OrderParameters struct {
	raw json.RawMessage
}

// Get returns the value at a gjson path, e.g. "properties.view:off_nadir".
func (p *OrderParameters) Get(path string) gjson.Result {
	return gjson.GetBytes(p.raw, path)
}

// Raw returns the JSON document.
func (p *OrderParameters) Raw() json.RawMessage {
	return p.raw
}

// MarshalJSON implements [json.Marshaler].
func (p OrderParameters) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("{}"), nil
	}
	return p.raw, nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (p *OrderParameters) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errors.New(422, "invalid order parameters document")
	}
	p.raw = append(p.raw[:0], b...)
	return nil
}

// OrderPayload is the body of a new tasking order.
type OrderPayload struct {
	Datetime string `json:"datetime"`

	// Geometry is a GeoJSON geometry.
	Geometry json.RawMessage `json:"geometry"`

	// Filter is an optional CQL2-JSON filter.
	Filter json.RawMessage `json:"filter,omitempty"`

	OrderParameters map[string]any `json:"order_parameters"`
}

// Validate validates this order payload
func (m *OrderPayload) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.RequiredString("datetime", "body", m.Datetime); err != nil {
		res = append(res, err)
	}

	if len(m.Geometry) == 0 {
		res = append(res, errors.Required("geometry", "body", nil))
	} else if !gjson.ValidBytes(m.Geometry) || !gjson.GetBytes(m.Geometry, "type").Exists() {
		res = append(res, errors.New(422, "geometry in body must be a GeoJSON geometry"))
	}

	if len(m.Filter) > 0 && !gjson.ValidBytes(m.Filter) {
		res = append(res, errors.New(422, "filter in body must be valid JSON"))
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// MarshalBinary interface implementation
func (m *OrderPayload) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *OrderPayload) UnmarshalBinary(b []byte) error {
	var res OrderPayload
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// Order is a tasking order.
type Order struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	User       string          `json:"user"`
	Created    strfmt.DateTime `json:"created"`
	Status     OrderStatus     `json:"status"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
	Links      []Link          `json:"links"`

	raw json.RawMessage
}

// OrderStatus is the latest status of an order.
type OrderStatus struct {
	Timestamp  strfmt.DateTime `json:"timestamp"`
	StatusCode string          `json:"status_code"`
	ReasonCode string          `json:"reason_code,omitempty"`
	ReasonText string          `json:"reason_text,omitempty"`
}

// Link is a STAC link.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Get returns the value at a gjson path of the order as returned by the
// server, including fields not mapped on Order.
func (o *Order) Get(path string) gjson.Result {
	return gjson.GetBytes(o.raw, path)
}

// UnmarshalJSON implements [json.Unmarshaler] and keeps the raw document.
func (o *Order) UnmarshalJSON(b []byte) error {
	type order Order
	var res order
	if err := json.Unmarshal(b, &res); err != nil {
		return err
	}
	*o = Order(res)
	o.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalBinary interface implementation
func (o *Order) MarshalBinary() ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return swag.WriteJSON(o)
}

// UnmarshalBinary interface implementation
func (o *Order) UnmarshalBinary(b []byte) error {
	return o.UnmarshalJSON(b)
}

// Item is the part of a STAC item needed to download its assets.
type Item struct {
	ID          string           `json:"id"`
	Collection  string           `json:"collection,omitempty"`
	STACVersion string           `json:"stac_version,omitempty"`
	Assets      map[string]Asset `json:"assets,omitempty"`
}

// Asset is a STAC asset.
type Asset struct {
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// MarshalBinary interface implementation
func (i *Item) MarshalBinary() ([]byte, error) {
	if i == nil {
		return nil, nil
	}
	return swag.WriteJSON(i)
}

// UnmarshalBinary interface implementation
func (i *Item) UnmarshalBinary(b []byte) error {
	var res Item
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*i = res
	return nil
}
