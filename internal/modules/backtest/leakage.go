package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/lottolab/internal/domain"
)

// CheckDataLeakage reports any way the test set could carry information the
// training set should not have: shared contests or dates, test draws dated before
// the latest training draw, and test contests not after the latest training contest.
func CheckDataLeakage(training, test []domain.Draw) domain.LeakageReport {
	report := domain.LeakageReport{Details: []string{}}
	if len(training) == 0 || len(test) == 0 {
		return report
	}

	contests := make(map[int]bool, len(training))
	dates := make(map[string]bool, len(training))
	var maxDate time.Time
	maxContest := 0
	for _, d := range training {
		contests[d.ContestNumber] = true
		if !d.Date.IsZero() {
			dates[dateKey(d.Date)] = true
			if d.Date.After(maxDate) {
				maxDate = d.Date
			}
		}
		if d.ContestNumber > maxContest {
			maxContest = d.ContestNumber
		}
	}

	var sharedContests, earlyContests, sharedDates, earlyDates []int
	for _, d := range test {
		if contests[d.ContestNumber] {
			sharedContests = append(sharedContests, d.ContestNumber)
		} else if d.ContestNumber <= maxContest {
			earlyContests = append(earlyContests, d.ContestNumber)
		}

		if d.Date.IsZero() {
			continue
		}
		if dates[dateKey(d.Date)] {
			sharedDates = append(sharedDates, d.ContestNumber)
		} else if d.Date.Before(maxDate) {
			earlyDates = append(earlyDates, d.ContestNumber)
		}
	}

	add := func(contests []int, format string, args ...interface{}) {
		if len(contests) == 0 {
			return
		}
		sort.Ints(contests)
		report.HasLeakage = true
		report.Details = append(report.Details, fmt.Sprintf(format, append([]interface{}{contests}, args...)...))
	}

	add(sharedContests, "test contests %v also appear in training data")
	add(sharedDates, "test contests %v share a draw date with training data")
	add(earlyDates, "test contests %v are dated before the latest training draw (%s)", maxDate.Format("2006-01-02"))
	add(earlyContests, "test contests %v are not after the latest training contest %d", maxContest)

	return report
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SplitChronological splits draws into the oldest trainFraction for training and
// the rest for testing. Draws are sorted by contest first; the input is not modified.
func SplitChronological(draws []domain.Draw, trainFraction float64) (training, test []domain.Draw, err error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, domain.NewConfigurationError("train_fraction", "must be in (0, 1), got %v", trainFraction)
	}

	sorted := make([]domain.Draw, len(draws))
	copy(sorted, draws)
	domain.SortDraws(sorted)

	cut := int(float64(len(sorted)) * trainFraction)
	return sorted[:cut:cut], sorted[cut:], nil
}
