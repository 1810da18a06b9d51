// Package receipt renders order receipts as PDF documents.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/slug"
)

const (
	// DefaultLogoURL is drawn for products without a logo of their own.
	DefaultLogoURL = "https://avatars.mds.yandex.net/get-mpic/5253116/2a0000018aa507311f34ae5b644286e1650d/orig"

	DefaultContactEmail = "software.dev1988@mail.com"

	maxLogoBytes = 2 << 20
	qrSize       = 256
	logoSize     = 12.0
)

// LogoFetcher downloads product images.
type LogoFetcher interface {
	GetBytes(ctx context.Context, url string, limit int64) ([]byte, error)
}

// Config controls receipt content.
type Config struct {
	ContactEmail   string
	DefaultLogoURL string
	FetchTimeout   time.Duration
}

// Renderer draws an order summary: contact QR code, one line per item with
// its logo, totals and a pickup code.
type Renderer struct {
	logos  LogoFetcher
	cfg    Config
	logger *slog.Logger
	code   func() int
	now    func() time.Time
}

// NewRenderer creates a renderer. logos may be nil, in which case items are
// drawn with an empty frame instead of an image.
func NewRenderer(logos LogoFetcher, cfg Config, logger *slog.Logger) *Renderer {
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = DefaultContactEmail
	}
	if cfg.DefaultLogoURL == "" {
		cfg.DefaultLogoURL = DefaultLogoURL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return &Renderer{
		logos:  logos,
		cfg:    cfg,
		logger: logger,
		code:   PickupCode,
		now:    time.Now,
	}
}

// PickupCode returns a random three-digit code.
func PickupCode() int {
	return 100 + rand.IntN(900)
}

// Render writes the receipt for o to w.
func (r *Renderer) Render(ctx context.Context, o *domain.Order, w io.Writer) error {
	qr, err := qrcode.Encode("mailto:"+r.cfg.ContactEmail, qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("encode contact qr code: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order "+o.ID, true)
	pdf.SetCreator("storefront", true)
	pdf.SetCreationDate(r.now().UTC())
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Order "+o.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Placed "+o.CreatedAt.UTC().Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Delivery in %d days", domain.DeliveryDays)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.RegisterImageOptionsReader("contact-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	pdf.ImageOptions("contact-qr", 150, 12, 45, 45, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetY(60)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(16, 8, "", "B", 0, "L", false, 0, "")
	pdf.CellFormat(96, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(0, 8, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	logos := make(map[string]string)
	for i, it := range o.Items {
		title, logoURL := it.ProductID, ""
		if it.Product != nil {
			title, logoURL = it.Product.Title, it.Product.Logo
		}
		if logoURL == "" {
			logoURL = r.cfg.DefaultLogoURL
		}

		y := pdf.GetY() + 1
		if name := r.registerLogo(ctx, pdf, logos, logoURL, i); name != "" {
			pdf.ImageOptions(name, pdf.GetX()+1, y, logoSize, logoSize, false, fpdf.ImageOptions{}, 0, "")
		} else {
			pdf.Rect(pdf.GetX()+1, y, logoSize, logoSize, "D")
		}
		pdf.CellFormat(16, logoSize+2, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(96, logoSize+2, tr(slug.Transliterate(title)), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, logoSize+2, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, logoSize+2, formatRUB(it.LineTotal()), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(112, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, fmt.Sprintf("%d", o.TotalQuantity()), "T", 0, "R", false, 0, "")
	pdf.CellFormat(0, 8, formatRUB(o.TotalPrice), "T", 1, "R", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Pickup code: %d", r.code()), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr("Questions? Scan the code or write to "+r.cfg.ContactEmail), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write receipt pdf: %w", err)
	}
	return nil
}

// registerLogo fetches logoURL once per document and registers it with pdf.
// It returns "" when the image is unavailable or not a decodable format.
func (r *Renderer) registerLogo(ctx context.Context, pdf *fpdf.Fpdf, seen map[string]string, logoURL string, idx int) string {
	if name, ok := seen[logoURL]; ok {
		return name
	}
	seen[logoURL] = ""
	if r.logos == nil {
		return ""
	}
	if !fetchableURL(logoURL) {
		r.logger.WarnContext(ctx, "product logo url not fetchable", slog.String("url", logoURL))
		return ""
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	data, err := r.logos.GetBytes(fetchCtx, logoURL, maxLogoBytes)
	if err != nil {
		r.logger.WarnContext(ctx, "product logo unavailable",
			slog.String("url", logoURL),
			slog.String("error", err.Error()),
		)
		return ""
	}

	imageType := imageTypeOf(data)
	if imageType == "" {
		r.logger.WarnContext(ctx, "product logo has unsupported format", slog.String("url", logoURL))
		return ""
	}

	name := fmt.Sprintf("logo-%d", idx)
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if pdf.Err() {
		// fpdf latches the first error; a broken image must not sink the receipt.
		r.logger.WarnContext(ctx, "product logo rejected", slog.String("url", logoURL), slog.String("error", pdf.Error().Error()))
		pdf.ClearError()
		return ""
	}
	seen[logoURL] = name
	return name
}

// fetchableURL reports whether raw is an absolute http or https URL.
func fetchableURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// imageTypeOf returns the fpdf image type for data, or "" if it cannot be decoded.
func imageTypeOf(data []byte) string {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return ""
	}
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

// formatRUB renders minor units as "1234.50 RUB".
func formatRUB(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/domain.MinorUnitsPerMajor, minor%domain.MinorUnitsPerMajor, strings.ToUpper(domain.Currency))
}
