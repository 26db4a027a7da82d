package csda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strconv"
)

const (
	vendorsPath  = "/signup/vendors/api/vendors/"
	productsPath = "/signup/vendors/api/products/"
)

// Vendors iterates over all vendors. The request is sent when iteration
// starts and each vendor is decoded as it is reached; ranging again sends
// a new request.
//
// Example:
//
//	for vendor, err := range client.Vendors(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(vendor.Slug)
//	}
func (c *Client) Vendors(ctx context.Context) iter.Seq2[*Vendor, error] {
	return listSeq[Vendor](ctx, c, &Request{Path: vendorsPath}, "listing vendors")
}

// ListVendors returns all vendors.
func (c *Client) ListVendors(ctx context.Context) ([]Vendor, error) {
	return collect(c.Vendors(ctx))
}

// Products iterates over the products of a vendor. See [Client.Vendors]
// for the iteration semantics.
func (c *Client) Products(ctx context.Context, vendorID int) iter.Seq2[*Product, error] {
	req := &Request{
		Path:   productsPath,
		Params: url.Values{"vendor": {strconv.Itoa(vendorID)}},
	}
	return listSeq[Product](ctx, c, req, fmt.Sprintf("listing products of vendor %d", vendorID))
}

// ListProducts returns all products of a vendor.
func (c *Client) ListProducts(ctx context.Context, vendorID int) ([]Product, error) {
	return collect(c.Products(ctx, vendorID))
}

// listSeq sends req and yields the elements of the JSON array it returns.
// Iteration stops at the first error.
func listSeq[T any](ctx context.Context, c *Client, req *Request, op string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		resp, err := c.Do(ctx, req)
		if err != nil {
			yield(nil, fmt.Errorf("%s: %w", op, err))
			return
		}

		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		if err := expectDelim(dec, '['); err != nil {
			yield(nil, fmt.Errorf("%s: %w", op, newError(CodeDecode, "expected JSON array", resp.StatusCode, err)))
			return
		}

		for dec.More() {
			var v T
			if err := dec.Decode(&v); err != nil {
				yield(nil, fmt.Errorf("%s: %w", op, newError(CodeDecode, "failed to decode element", resp.StatusCode, err)))
				return
			}
			if !yield(&v, nil) {
				return
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			yield(nil, fmt.Errorf("%s: %w", op, newError(CodeDecode, "unterminated JSON array", resp.StatusCode, err)))
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("got %v, want %v", tok, want)
	}
	return nil
}

func collect[T any](seq iter.Seq2[*T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
