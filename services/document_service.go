package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/kendall-kelly/transformers-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const pdfContentType = "application/pdf"

// OrderDocument is a rendered production order
type OrderDocument struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ArchivedDocument points at a document kept in object storage
type ArchivedDocument struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderDocumentKey is the object key of an order's archived document
func OrderDocumentKey(orderID uint) string {
	return fmt.Sprintf("orders/%d/Orden_%d.pdf", orderID, orderID)
}

// DocumentService renders production orders to PDF and archives them
type DocumentService struct {
	orders *OrderService
	store  DocumentStore
	now    func() time.Time
}

// NewDocumentService creates a document service. store may be nil, in which
// case Archive fails with ErrDocumentStoreDisabled.
func NewDocumentService(orders *OrderService, store DocumentStore) *DocumentService {
	return &DocumentService{orders: orders, store: store, now: time.Now}
}

// Render builds the PDF of an order and its material requirements
func (s *DocumentService) Render(ctx context.Context, orderID uint) (*OrderDocument, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	requirements, err := s.orders.Requirements(ctx, orderID)
	if err != nil {
		return nil, err
	}

	content, err := renderOrderPDF(order, requirements, s.now())
	if err != nil {
		return nil, err
	}
	return &OrderDocument{
		FileName:    fmt.Sprintf("Orden_%d.pdf", order.ID),
		ContentType: pdfContentType,
		Content:     content,
	}, nil
}

// Archive renders the order, uploads it and returns a presigned URL to it
func (s *DocumentService) Archive(ctx context.Context, orderID uint) (*ArchivedDocument, error) {
	if s.store == nil {
		return nil, &StorageUnavailableError{Op: "archive order document", Err: ErrDocumentStoreDisabled}
	}

	doc, err := s.Render(ctx, orderID)
	if err != nil {
		return nil, err
	}

	key := OrderDocumentKey(orderID)
	if err := s.store.Upload(ctx, key, doc.Content, doc.ContentType); err != nil {
		return nil, &StorageUnavailableError{Op: "archive order document", Err: err}
	}
	url, err := s.store.PresignedURL(ctx, key)
	if err != nil {
		return nil, &StorageUnavailableError{Op: "archive order document", Err: err}
	}

	log.Info().Uint("order_id", orderID).Str("key", key).Int("bytes", len(doc.Content)).Msg("archived order document")
	return &ArchivedDocument{Key: key, URL: url, ExpiresAt: s.now().Add(PresignExpiry)}, nil
}

func renderOrderPDF(order *models.ProductionOrder, requirements []MaterialRequirement, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentW, 12, tr("ORDEN DE PRODUCCIÓN"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	productName := "-"
	if order.Product != nil {
		productName = order.Product.Name
	}
	info := [][2]string{
		{"N° de Orden:", fmt.Sprintf("%d", order.ID)},
		{"Fecha:", order.OrderDate.Local().Format("02/01/2006 [15:04 h]")},
		{"Transformador:", productName},
		{"Cantidad a fabricar:", formatQuantity(order.Quantity)},
		{"Estado:", order.Status.Label()},
	}
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(50, 7, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(contentW-50, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "MATERIALES REQUERIDOS", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	col1 := contentW * 0.5
	col2 := contentW * 0.25
	col3 := contentW * 0.25

	pdf.SetFillColor(200, 200, 200)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(col1, 8, "Material", "B", 0, "L", true, 0, "")
	pdf.CellFormat(col2, 8, "Cantidad Total", "B", 0, "C", true, 0, "")
	pdf.CellFormat(col3, 8, "Unidad", "B", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetDrawColor(200, 200, 200)
	if len(requirements) == 0 {
		pdf.CellFormat(contentW, 7, tr("El producto no tiene materiales asignados."), "B", 1, "C", false, 0, "")
	}
	for _, req := range requirements {
		pdf.CellFormat(col1, 7, tr(req.MaterialName), "B", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 7, formatQuantity(req.TotalQuantity), "B", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 7, tr(req.UnitName), "B", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(128, 128, 128)
	footer := fmt.Sprintf("Generado el %s a las %s h", generatedAt.Local().Format("02/01/2006"), generatedAt.Local().Format("15:04"))
	pdf.CellFormat(contentW, 5, footer, "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render order %d: %w", order.ID, err)
	}
	return buf.Bytes(), nil
}

// formatQuantity prints at most two fraction digits and no trailing zeros
func formatQuantity(d decimal.Decimal) string {
	return d.Round(2).String()
}
