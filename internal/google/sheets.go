// Package google mirrors bookings into a Google Sheets ledger that the
// operations team works from. The spreadsheet is write-mostly: one row per
// booking, addressed through a row index cache keyed by booking id.
package google

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"carbooker/internal/models"
)

const (
	bookingsSheet = "Bookings"
	bookingsRange = bookingsSheet + "!A:J"
	timeFormat    = "2006-01-02 15:04"
)

type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string

	cacheMu  sync.RWMutex
	rowCache map[int64]int // booking id -> 1-based sheet row
}

// NewSheetsService authenticates with a service account credentials file and
// warms the row cache in the background.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	s := &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[int64]int),
	}

	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.WarmUpCache(warmCtx)
	}()

	return s, nil
}

// TestConnection reads the header row to confirm access to the spreadsheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WarmUpCache rebuilds the row index by reading the booking id column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		raw, ok := row[0].(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue // header or stray text
		}
		cache[id] = i + 1
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// AppendBooking adds a row for the booking at the bottom of the sheet.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{Values: [][]interface{}{bookingRow(booking)}}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append booking %d: %w", booking.ID, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.cacheMu.Lock()
			s.rowCache[booking.ID] = row
			s.cacheMu.Unlock()
		}
	}
	return nil
}

// UpsertBooking rewrites the booking's row in place, appending when the
// booking has no row yet.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	row, ok := s.cachedRow(booking.ID)
	if !ok {
		if err := s.WarmUpCache(ctx); err != nil {
			return err
		}
		if row, ok = s.cachedRow(booking.ID); !ok {
			return s.AppendBooking(ctx, booking)
		}
	}

	target := fmt.Sprintf("%s!A%d:J%d", bookingsSheet, row, row)
	valueRange := &sheets.ValueRange{Values: [][]interface{}{bookingRow(booking)}}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, target, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update booking %d row %d: %w", booking.ID, row, err)
	}
	return nil
}

// DeleteBooking blanks the booking's row. Rows are cleared rather than
// removed so cached indexes for other bookings stay valid.
func (s *SheetsService) DeleteBooking(ctx context.Context, bookingID int64) error {
	row, ok := s.cachedRow(bookingID)
	if !ok {
		if err := s.WarmUpCache(ctx); err != nil {
			return err
		}
		if row, ok = s.cachedRow(bookingID); !ok {
			return nil // never synced, nothing to clear
		}
	}

	target := fmt.Sprintf("%s!A%d:J%d", bookingsSheet, row, row)
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, target, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear booking %d row %d: %w", bookingID, row, err)
	}

	s.cacheMu.Lock()
	delete(s.rowCache, bookingID)
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) cachedRow(bookingID int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func bookingRow(b *models.Booking) []interface{} {
	userName := ""
	if b.User != nil {
		userName = b.User.Name
	}
	carName := ""
	if b.Car != nil {
		carName = fmt.Sprintf("%s %s", b.Car.Name, b.Car.Model)
	}

	return []interface{}{
		strconv.FormatInt(b.ID, 10),
		userName,
		carName,
		b.PickUpTime.Format(timeFormat),
		b.DropOffTime.Format(timeFormat),
		b.TotalAmount,
		b.AmountPaid,
		b.PaymentType,
		b.PaymentStatus,
		b.CreatedAt.Format(timeFormat),
	}
}

// rowFromRange extracts the first row number from an A1 range such as
// "Bookings!A42:J42".
func rowFromRange(a1 string) (int, bool) {
	start := -1
	for i := 0; i < len(a1); i++ {
		c := a1[i]
		if c >= '0' && c <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			break
		}
	}
	if start == -1 {
		return 0, false
	}
	end := start
	for end < len(a1) && a1[end] >= '0' && a1[end] <= '9' {
		end++
	}
	row, err := strconv.Atoi(a1[start:end])
	if err != nil {
		return 0, false
	}
	return row, true
}
