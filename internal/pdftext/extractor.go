// Package pdftext extracts plain text from tender PDFs. The pipeline only
// needs text good enough for pattern rules and fuzzy matching, so the
// pdfcpu-backed extractor reads each page's content stream and decodes the
// text-showing operators rather than attempting full layout analysis.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdf "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	errorsx "github.com/baires-data/boletin-pipeline/pkg/errors"
)

// Extractor turns PDF bytes into plain text.
type Extractor interface {
	Text(ctx context.Context, idNorma int64, data []byte) (string, error)
}

// PDFCPU extracts text with pdfcpu's content-stream API.
type PDFCPU struct {
	conf *model.Configuration
}

func NewPDFCPU() *PDFCPU {
	conf := model.NewDefaultConfiguration()
	// Tender PDFs frequently carry malformed CropBoxes; relaxed validation
	// still lets the content streams through.
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

func (e *PDFCPU) Text(ctx context.Context, idNorma int64, data []byte) (string, error) {
	identifier := fmt.Sprint(idNorma)
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return "", errorsx.Newf(errorsx.ErrPDFExtract, identifier, "reading pdf: %v", err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return "", errorsx.Newf(errorsx.ErrPDFExtract, identifier, "validating pdf: %v", err)
	}
	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r, err := pdf.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return "", errorsx.Newf(errorsx.ErrPDFExtract, identifier, "extracting page %d: %v", pageNr, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", errorsx.Newf(errorsx.ErrPDFExtract, identifier, "reading page %d content: %v", pageNr, err)
		}
		pages = append(pages, DecodeContentText(content))
	}
	return strings.Join(pages, "\n"), nil
}

// DecodeContentText pulls the string operands of the text-showing operators
// (Tj, TJ, ', ") out of a decoded content stream. Literal strings are
// parenthesized with backslash escapes; numbers inside TJ arrays are
// kerning adjustments and are skipped.
func DecodeContentText(content []byte) string {
	var out strings.Builder
	var literal strings.Builder
	depth := 0
	escaped := false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if depth == 0 {
			if ch == '(' {
				depth = 1
				literal.Reset()
			}
			continue
		}
		if escaped {
			switch ch {
			case 'n':
				literal.WriteByte('\n')
			case 't':
				literal.WriteByte('\t')
			case '(', ')', '\\':
				literal.WriteByte(ch)
			}
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '(':
			depth++
			literal.WriteByte(ch)
		case ')':
			depth--
			if depth == 0 {
				if out.Len() > 0 {
					out.WriteByte(' ')
				}
				out.WriteString(literal.String())
			} else {
				literal.WriteByte(ch)
			}
		default:
			literal.WriteByte(ch)
		}
	}
	return out.String()
}
