package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/history"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/product"
	"github.com/xenking/kart-checkout/internal/session"
)

const maxBodySize = 64 << 10

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readObject decodes the request body as a JSON object, calling field for
// every key. Unknown keys must be skipped by field.
func readObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return invalidBody(err)
	}
	if len(data) == 0 {
		return invalidBody(errors.New("empty body"))
	}
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return invalidBody(err)
	}
	return nil
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeSnapshot(e *jx.Encoder, s cart.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range s.Lines {
					encodeCartLine(e, l)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { money(e, s.Total) })
		e.Field("count", func(e *jx.Encoder) { e.Int(s.Count) })
	})
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(l.ProductID) })
		e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
		e.Field("unitPrice", func(e *jx.Encoder) { money(e, l.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { money(e, l.Subtotal) })
	})
}

func encodeHistory(e *jx.Encoder, entries []history.Entry) {
	e.Arr(func(e *jx.Encoder) {
		for _, h := range entries {
			e.Obj(func(e *jx.Encoder) {
				e.Field("productId", func(e *jx.Encoder) { e.Str(h.ProductID) })
				e.Field("productName", func(e *jx.Encoder) { e.Str(h.ProductName) })
				e.Field("category", func(e *jx.Encoder) { e.Str(h.Category) })
				e.Field("image", func(e *jx.Encoder) { e.Str(h.ImageRef) })
				e.Field("viewedAt", func(e *jx.Encoder) { timestamp(e, h.ViewedAt) })
			})
		}
	})
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	base := h.imageBaseURL
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("image", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("thumbnail", func(e *jx.Encoder) { e.Str(base + p.Image.Thumbnail) })
				e.Field("mobile", func(e *jx.Encoder) { e.Str(base + p.Image.Mobile) })
				e.Field("tablet", func(e *jx.Encoder) { e.Str(base + p.Image.Tablet) })
				e.Field("desktop", func(e *jx.Encoder) { e.Str(base + p.Image.Desktop) })
			})
		})
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(l.ProductID) })
						e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { money(e, l.UnitPrice) })
						e.Field("subtotal", func(e *jx.Encoder) { money(e, l.Subtotal()) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { money(e, o.Total) })
		e.Field("createdAt", func(e *jx.Encoder) { timestamp(e, o.CreatedAt) })
	})
}

func encodeInfo(e *jx.Encoder, info session.Info) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(info.Status.String()) })
		if info.IdentityID != "" {
			e.Field("identityId", func(e *jx.Encoder) { e.Str(info.IdentityID) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { timestamp(e, info.CreatedAt) })
		e.Field("lastActivityAt", func(e *jx.Encoder) { timestamp(e, info.LastActivityAt) })
	})
}

func encodeToken(e *jx.Encoder, token, identityID string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("token", func(e *jx.Encoder) { e.Str(token) })
		if identityID != "" {
			e.Field("identityId", func(e *jx.Encoder) { e.Str(identityID) })
		}
	})
}
