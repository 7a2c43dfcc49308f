package history

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/lottolab/internal/domain"
)

// Accepted draw date layouts, tried in order
var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// jsonDraw is the on-disk JSON shape of a draw
type jsonDraw struct {
	ContestNumber int    `json:"contest_number"`
	Date          string `json:"date"`
	Numbers       []int  `json:"numbers"`
}

// LoadFile reads draws from a .csv or .json file and validates them against the lottery
func LoadFile(path string, lottery domain.Lottery) ([]domain.Draw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draw file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(f, lottery)
	case ".json":
		return ParseJSON(f, lottery)
	default:
		return nil, fmt.Errorf("unsupported draw file extension %q (want .csv or .json)", filepath.Ext(path))
	}
}

// ParseCSV reads rows of contest,date,numbers... . The numbers may span one column per
// number or share a single column separated by spaces, dashes or semicolons.
// A first row whose contest column is not numeric is treated as a header.
func ParseCSV(r io.Reader, lottery domain.Lottery) ([]domain.Draw, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var draws []domain.Draw
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("csv line %d: expected contest, date and numbers, got %d columns", line, len(record))
		}

		contest, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("csv line %d: invalid contest number %q", line, record[0])
		}

		date, err := parseDate(record[1])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		numbers, err := parseNumbers(record[2:])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		draws = append(draws, domain.NewDraw(contest, date, numbers))
	}

	return finalize(draws, lottery)
}

// ParseJSON reads an array of {contest_number, date, numbers} objects
func ParseJSON(r io.Reader, lottery domain.Lottery) ([]domain.Draw, error) {
	var raw []jsonDraw
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode draws: %w", err)
	}

	draws := make([]domain.Draw, 0, len(raw))
	for _, jd := range raw {
		date, err := parseDate(jd.Date)
		if err != nil {
			return nil, fmt.Errorf("contest %d: %w", jd.ContestNumber, err)
		}
		draws = append(draws, domain.NewDraw(jd.ContestNumber, date, jd.Numbers))
	}

	return finalize(draws, lottery)
}

// finalize sorts by contest and validates the whole history
func finalize(draws []domain.Draw, lottery domain.Lottery) ([]domain.Draw, error) {
	if len(draws) == 0 {
		return nil, fmt.Errorf("no draws found")
	}
	domain.SortDraws(draws)
	if err := domain.ValidateDraws(draws, lottery); err != nil {
		return nil, fmt.Errorf("invalid %s history: %w", lottery.ID, err)
	}
	return draws, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseNumbers(fields []string) ([]int, error) {
	var numbers []int
	for _, field := range fields {
		parts := strings.FieldsFunc(field, func(r rune) bool {
			return r == ' ' || r == '-' || r == ';' || r == '\t'
		})
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", p)
			}
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}
