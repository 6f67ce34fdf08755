package client

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"adsreport/internal/models"
)

// XLSXLoader reads a worksheet from a local workbook, e.g. a downloaded export
// of the report sheet.
type XLSXLoader struct {
	path      string
	sheetName string
	logger    *logrus.Logger
}

func NewXLSXLoader(path, sheetName string, logger *logrus.Logger) *XLSXLoader {
	return &XLSXLoader{path: path, sheetName: sheetName, logger: logger}
}

// FetchRows returns the rows of the configured sheet, or of the first sheet
// when none is configured.
func (l *XLSXLoader) FetchRows(ctx context.Context) ([]models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "" {
		return nil, fmt.Errorf("XLSX_PATH is not set")
	}

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.sheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", l.path)
		}
		sheet = sheets[0]
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}

	rows := make([]models.RawRow, len(cells))
	for i, c := range cells {
		rows[i] = models.RawRow(c)
	}

	l.logger.WithFields(logrus.Fields{
		"path":  l.path,
		"sheet": sheet,
		"rows":  len(rows),
	}).Info("Loaded workbook rows")
	return rows, nil
}
