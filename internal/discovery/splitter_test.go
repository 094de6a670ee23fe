package discovery

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-patterns-system/internal/models"
)

func makeTx(id string, day time.Time, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:         id,
		UserID:     "user-1",
		PayeeID:    "payee-1",
		Direction:  models.DirectionDebit,
		CurrencyID: "INR",
		OccurredAt: day,
		Amount:     decimal.NewFromInt(amount),
	}
}

func monthlySeries(prefix string, start time.Time, intervalDays int, amounts []int64) []*models.Transaction {
	txns := make([]*models.Transaction, len(amounts))
	date := start
	for i, amount := range amounts {
		txns[i] = makeTx(fmt.Sprintf("%s-%d", prefix, i), date, amount)
		date = date.AddDate(0, 0, intervalDays)
	}
	return txns
}

func TestSplit_SingleHomogeneousSeries(t *testing.T) {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	txns := monthlySeries("salary", start, 30, []int64{50000, 50000, 50000, 50000})

	clusters := Split(txns)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Transactions, 4)
	assert.True(t, clusters[0].Centroid.Equal(decimal.NewFromInt(50000)))
}

// Один получатель, три независимых расписания с разными полосами сумм:
// сплиттер обязан выдать три кластера, а не один размазанный
func TestSplit_MultipleAmountBands(t *testing.T) {
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	var txns []*models.Transaction
	txns = append(txns, monthlySeries("small", start, 30, []int64{500, 510, 495})...)
	txns = append(txns, monthlySeries("mid", start.AddDate(0, 0, 10), 30, []int64{5000, 5100, 4950})...)
	txns = append(txns, monthlySeries("big", start.AddDate(0, 0, 20), 30, []int64{20000, 20000, 20000})...)

	clusters := Split(txns)
	require.Len(t, clusters, 3)

	// Кластеры не пересекаются по полосам
	for _, c := range clusters {
		span := c.AmountMax.Sub(c.AmountMin)
		assert.True(t, span.LessThan(c.Centroid), "band span must be narrow: %s", span)
	}
}

func TestSplit_DayWindowSplitsWideBand(t *testing.T) {
	// Одинаковые суммы, но два расписания: 3-го и 21-го числа
	var txns []*models.Transaction
	for i := 0; i < 3; i++ {
		txns = append(txns, makeTx(fmt.Sprintf("a-%d", i), time.Date(2025, time.Month(3+i), 3, 0, 0, 0, 0, time.UTC), 1000))
		txns = append(txns, makeTx(fmt.Sprintf("b-%d", i), time.Date(2025, time.Month(3+i), 21, 0, 0, 0, 0, time.UTC), 1000))
	}

	clusters := Split(txns)
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.Len(t, c.Transactions, 3)
	}
}

// Зарплата на границе месяца: 31-е и 1-е числа должны остаться одним кластером
func TestSplit_MonthBoundaryWrap(t *testing.T) {
	txns := []*models.Transaction{
		makeTx("s-1", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 50000),
		makeTx("s-2", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 50000),
		makeTx("s-3", time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 50000),
		makeTx("s-4", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), 50000),
	}

	clusters := Split(txns)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Transactions, 4)
}

func TestSplit_DropsSmallClusters(t *testing.T) {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	txns := monthlySeries("few", start, 30, []int64{900, 910})

	clusters := Split(txns)
	assert.Empty(t, clusters)
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split(nil))
}

func TestAmountTolerance_Hybrid(t *testing.T) {
	// Для крупных сумм работает процент
	tol := amountTolerance(decimal.NewFromInt(1000))
	assert.True(t, tol.Equal(decimal.NewFromInt(250)))

	// Для мелких — абсолютный минимум
	tol = amountTolerance(decimal.NewFromInt(100))
	assert.True(t, tol.Equal(decimal.NewFromInt(50)))
}
