package csda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-openapi/strfmt"
)

const (
	proposalsPath       = "/signup/tasking/api/proposals"
	orderParametersPath = "/api/v1/stapi/products/%s/order-parameters"
	ordersPath          = "/api/v1/stapi/products/%s/orders"
)

// CreateTaskingProposal creates a tasking proposal. When submit is true
// the proposal is submitted for review, otherwise it is saved as a draft.
//
// The proposal is validated before it is sent; a validation failure is an
// *Error with [CodePrecondition].
func (c *Client) CreateTaskingProposal(ctx context.Context, p *CreateTaskingProposal, submit bool) (*TaskingProposal, error) {
	if p == nil {
		return nil, newError(CodePrecondition, "tasking proposal is required", 0, nil)
	}
	if err := p.Validate(strfmt.Default); err != nil {
		return nil, newError(CodePrecondition, "invalid tasking proposal", 0, err)
	}

	path := proposalsPath
	if submit {
		path += "?submit=true"
	}

	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path, JSON: p})
	if err != nil {
		return nil, fmt.Errorf("creating tasking proposal %q: %w", p.Name, err)
	}

	var proposal TaskingProposal
	if err := resp.DecodeJSON(&proposal); err != nil {
		return nil, fmt.Errorf("creating tasking proposal %q: %w", p.Name, err)
	}
	return &proposal, nil
}

// TaskingOrderParameters returns the order parameters a product accepts.
func (c *Client) TaskingOrderParameters(ctx context.Context, productID string) (*OrderParameters, error) {
	resp, err := c.Do(ctx, &Request{Path: fmt.Sprintf(orderParametersPath, url.PathEscape(productID))})
	if err != nil {
		return nil, fmt.Errorf("getting order parameters of product %q: %w", productID, err)
	}

	var params OrderParameters
	if err := resp.DecodeJSON(&params); err != nil {
		return nil, fmt.Errorf("getting order parameters of product %q: %w", productID, err)
	}
	return &params, nil
}

// CreateTaskingOrder places a tasking order for a product.
//
// The payload is validated before it is sent; a validation failure is an
// *Error with [CodePrecondition].
func (c *Client) CreateTaskingOrder(ctx context.Context, productID string, payload *OrderPayload) (*Order, error) {
	if payload == nil {
		return nil, newError(CodePrecondition, "order payload is required", 0, nil)
	}
	if err := payload.Validate(strfmt.Default); err != nil {
		return nil, newError(CodePrecondition, "invalid order payload", 0, err)
	}

	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf(ordersPath, url.PathEscape(productID)),
		JSON:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tasking order for product %q: %w", productID, err)
	}

	var order Order
	if err := resp.DecodeJSON(&order); err != nil {
		return nil, fmt.Errorf("creating tasking order for product %q: %w", productID, err)
	}
	return &order, nil
}
