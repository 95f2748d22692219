package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"datafeeder/internal/domain"
)

const sheetName = "Sheet1"

// Header is the column layout of the shop import file.
var Header = []string{"SKU", "Original Name", "Regular price", "In stock?", "Short description"}

type GameStore interface {
	ListWithOffers(ctx context.Context) ([]domain.Game, error)
	UpdateLastLowestPrice(ctx context.Context, ean int64, price float64) error
}

// Exporter writes the catalog with current lowest prices for the web shop.
type Exporter struct {
	games   GameStore
	printer *message.Printer
	logger  *slog.Logger
}

func NewExporter(games GameStore, logger *slog.Logger) *Exporter {
	return &Exporter{
		games:   games,
		printer: message.NewPrinter(language.Dutch),
		logger:  logger,
	}
}

// Export writes one row per game to path and returns the number of rows. When
// a game has an offer in stock its cheapest price becomes the stored last
// lowest price. Paths ending in .xlsx get a spreadsheet, anything else CSV.
func (e *Exporter) Export(ctx context.Context, path string) (int, error) {
	games, err := e.games.ListWithOffers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list games: %w", err)
	}

	rows := make([][]string, 0, len(games))
	for i := range games {
		row, err := e.row(ctx, &games[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = writeXLSX(path, rows)
	} else {
		err = writeCSV(path, rows)
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	e.logger.Info("exported games", "path", path, "rows", len(rows))
	return len(rows), nil
}

func (e *Exporter) row(ctx context.Context, game *domain.Game) ([]string, error) {
	if price, ok := game.LowestAvailablePrice(); ok && price != game.LastLowestPrice {
		if err := e.games.UpdateLastLowestPrice(ctx, game.EAN, price); err != nil {
			return nil, fmt.Errorf("update last lowest price %d: %w", game.EAN, err)
		}
		game.LastLowestPrice = price
	}

	inStock := "0"
	if len(game.AvailableOffers()) > 0 {
		inStock = "1"
	}

	return []string{
		strconv.FormatInt(game.EAN, 10),
		game.Name,
		e.FormatPrice(game.LastLowestPrice),
		inStock,
		shortDescription(game),
	}, nil
}

// FormatPrice renders a price in Dutch notation, e.g. 1.234,56.
func (e *Exporter) FormatPrice(price float64) string {
	return e.printer.Sprintf("%.2f", price)
}

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

func shortDescription(game *domain.Game) string {
	return lineBreaks.Replace(game.CleanDescription())
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func setRow(f *excelize.File, number int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, number)
	if err != nil {
		return err
	}

	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &row)
}
