package main

import (
	"bytes"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

// gzipMagic prefixes every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

type productEntry struct {
	Product inventory.Product
	Stock   inventory.Record
}

type catalog struct {
	Users         []user.User
	DiscountTypes []discount.Type
	Products      []productEntry
}

// readCatalog reads a JSON catalog, transparently gunzipping it.
func readCatalog(r io.Reader) (*catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := pgzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		if data, err = io.ReadAll(gz); err != nil {
			return nil, errors.Wrap(err, "gunzip catalog")
		}
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*catalog, error) {
	var c catalog
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "users":
			return d.Arr(func(d *jx.Decoder) error {
				u, err := decodeUser(d)
				if err != nil {
					return errors.Wrapf(err, "user %d", len(c.Users))
				}
				c.Users = append(c.Users, u)
				return nil
			})
		case "discountTypes":
			return d.Arr(func(d *jx.Decoder) error {
				t, err := decodeDiscountType(d)
				if err != nil {
					return errors.Wrapf(err, "discount type %d", len(c.DiscountTypes))
				}
				c.DiscountTypes = append(c.DiscountTypes, t)
				return nil
			})
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(c.Products))
				}
				c.Products = append(c.Products, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return &c, nil
}

func decodeUser(d *jx.Decoder) (user.User, error) {
	u := user.User{Active: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			u.ID, err = d.Str()
		case "name":
			u.Name, err = d.Str()
		case "role":
			var s string
			s, err = d.Str()
			u.Role = user.Role(s)
		case "active":
			u.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return u, err
	}
	if u.ID == "" {
		return u, errors.New("missing id")
	}
	if !u.Role.Valid() {
		return u, errors.Errorf("user %s: unknown role %q", u.ID, u.Role)
	}
	return u, nil
}

func decodeDiscountType(d *jx.Decoder) (discount.Type, error) {
	var t discount.Type
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			t.ID, err = d.Str()
		case "name":
			t.Name, err = d.Str()
		case "kind":
			var s string
			s, err = d.Str()
			t.Kind = discount.Kind(strings.ToUpper(s))
		case "scope":
			var s string
			s, err = d.Str()
			t.Scope = discount.Scope(strings.ToUpper(s))
		case "value":
			t.Value, err = decodeDecimal(d)
		case "requiresManagerPin":
			t.RequiresManagerPin, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return t, err
	}
	if t.ID == "" {
		return t, errors.New("missing id")
	}
	if t.Kind != discount.KindPercent && t.Kind != discount.KindFixed {
		return t, errors.Wrapf(discount.ErrUnsupportedKind, "discount type %s: %q", t.ID, t.Kind)
	}
	if t.Scope == "" {
		t.Scope = discount.ScopeOrder
	}
	return t, nil
}

func decodeProduct(d *jx.Decoder) (productEntry, error) {
	e := productEntry{Product: inventory.Product{Active: true}}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			e.Product.ID, err = d.Str()
		case "name":
			e.Product.Name, err = d.Str()
		case "price":
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				e.Product.Price = money.New(v)
			}
		case "active":
			e.Product.Active, err = d.Bool()
		case "stock":
			e.Stock.Quantity, err = d.Int()
		case "lowStockThreshold":
			e.Stock.LowStockThreshold, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return e, err
	}
	if e.Product.ID == "" {
		return e, errors.New("missing id")
	}
	if e.Product.Price.IsNegative() {
		return e, errors.Errorf("product %s: negative price", e.Product.ID)
	}
	if e.Stock.Quantity < 0 {
		return e, errors.Errorf("product %s: negative stock", e.Product.ID)
	}
	e.Stock.ProductID = e.Product.ID
	return e, nil
}

// decodeDecimal accepts "12.50" or 12.50.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	}
	return decimal.NewFromString(s)
}
