package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/dens-health/casetrack-api/internal/models"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

// LabelService renders the QR code and the printable tray label for a case.
// Both embed the public tracking URL built from the case's token.
type LabelService struct {
	cases   *CaseService
	baseURL string
	logger  *zap.Logger
}

// NewLabelService constructs a LabelService instance.
func NewLabelService(cases *CaseService, baseURL string, logger *zap.Logger) *LabelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelService{cases: cases, baseURL: baseURL, logger: logger}
}

// PublicURL builds the tracking URL embedded in QR codes and labels.
func (s *LabelService) PublicURL(kase *models.Case) string {
	return fmt.Sprintf("%s/t/%s", s.baseURL, kase.PublicToken)
}

// QRCode renders the case's tracking URL as a PNG.
func (s *LabelService) QRCode(ctx context.Context, claims *models.JWTClaims, caseID string, size int) ([]byte, error) {
	kase, err := s.cases.Get(ctx, claims, caseID)
	if err != nil {
		return nil, err
	}
	if size <= 0 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(s.PublicURL(kase), qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return png, nil
}

// Label renders a printable A7 tray label as a PDF: case code, patient,
// lab, and the QR code.
func (s *LabelService) Label(ctx context.Context, claims *models.JWTClaims, caseID string) ([]byte, error) {
	kase, err := s.cases.Get(ctx, claims, caseID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.PublicURL(kase), qrcode.Medium, 256)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}

	pdf := gofpdf.New("L", "mm", "A7", "")
	pdf.SetMargins(6, 6, 6)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, kase.CaseCode, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, kase.PatientName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, kase.LabName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 4, fmt.Sprintf("DOB %s", kase.PatientDOB.Format("2006-01-02")), "", 1, "L", false, 0, "")

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("qr", pageW-32, 6, 26, 26, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render label pdf")
	}
	return buf.Bytes(), nil
}
