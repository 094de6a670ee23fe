package discovery

import (
	"sort"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// Пороговые значения разбиения на кластеры
const (
	// MinClusterSize — минимум транзакций, чтобы кластер имел смысл
	// (для вывода интервала нужны хотя бы два промежутка)
	MinClusterSize = 3

	// AmountTolerancePercent — относительный допуск полосы сумм (±25%)
	AmountTolerancePercent = 0.25

	// MaxDayWindowSpan — максимальная ширина окна дня месяца одного кластера
	MaxDayWindowSpan = 10
)

// AmountToleranceAbsolute — абсолютный допуск полосы сумм (±50)
var AmountToleranceAbsolute = decimal.NewFromInt(50)

// Cluster — кандидат на независимую повторяющуюся серию внутри группы
type Cluster struct {
	Transactions []*models.Transaction
	AmountMin    decimal.Decimal
	AmountMax    decimal.Decimal
	Centroid     decimal.Decimal
}

// amountTolerance возвращает гибридный допуск: max(±25% от значения, ±50)
func amountTolerance(amount decimal.Decimal) decimal.Decimal {
	relative := amount.Mul(decimal.NewFromFloat(AmountTolerancePercent))
	if relative.GreaterThan(AmountToleranceAbsolute) {
		return relative
	}
	return AmountToleranceAbsolute
}

// Split разбивает группу транзакций одного ключа на независимые кластеры.
// Один получатель может вести несколько расписаний (например, три чит-взноса
// в разные числа месяца с разными полосами сумм); слить их в одну серию —
// значит получить один паттерн с раздутой дисперсией вместо трех точных.
//
// Разбиение двухосевое: сначала жадная одномерная агломерация по сумме,
// затем проверка окна дня месяца внутри каждой полосы.
func Split(transactions []*models.Transaction) []*Cluster {
	if len(transactions) == 0 {
		return nil
	}

	bands := splitByAmount(transactions)

	var clusters []*Cluster
	for _, band := range bands {
		clusters = append(clusters, splitByDayWindow(band)...)
	}

	// Кластеры меньше минимума отбрасываются целиком
	kept := clusters[:0]
	for _, c := range clusters {
		if len(c.Transactions) >= MinClusterSize {
			sortByDate(c.Transactions)
			kept = append(kept, c)
		}
	}
	return kept
}

// splitByAmount — жадная агломерация по отсортированным суммам: новая полоса
// начинается, когда разрыв до текущего центроида превышает допуск.
// При равном удалении транзакция остается в нижней (более ранней) полосе.
func splitByAmount(transactions []*models.Transaction) [][]*models.Transaction {
	sorted := make([]*models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Amount.Equal(sorted[j].Amount) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].Amount.LessThan(sorted[j].Amount)
	})

	var bands [][]*models.Transaction
	current := []*models.Transaction{sorted[0]}
	sum := sorted[0].Amount

	for i := 1; i < len(sorted); i++ {
		centroid := sum.Div(decimal.NewFromInt(int64(len(current))))
		gap := sorted[i].Amount.Sub(centroid)
		if gap.LessThanOrEqual(amountTolerance(centroid)) {
			current = append(current, sorted[i])
			sum = sum.Add(sorted[i].Amount)
			continue
		}
		bands = append(bands, current)
		current = []*models.Transaction{sorted[i]}
		sum = sorted[i].Amount
	}
	bands = append(bands, current)
	return bands
}

// Окна дня месяца для дальнейшего разбиения неоднородной полосы
var dayWindows = [][2]int{{1, 10}, {11, 20}, {21, 31}}

// splitByDayWindow принимает полосу сумм как один кластер, если дни месяца
// укладываются в окно шириной MaxDayWindowSpan (с переносом через границу
// месяца), иначе режет по фиксированным окнам [1–10], [11–20], [21–31].
func splitByDayWindow(band []*models.Transaction) []*Cluster {
	days := make([]int, len(band))
	for i, tx := range band {
		days[i] = tx.OccurredAt.UTC().Day()
	}

	if circularDaySpan(days) <= MaxDayWindowSpan {
		return []*Cluster{newCluster(band)}
	}

	var clusters []*Cluster
	for _, window := range dayWindows {
		var part []*models.Transaction
		for _, tx := range band {
			day := tx.OccurredAt.UTC().Day()
			if day >= window[0] && day <= window[1] {
				part = append(part, tx)
			}
		}
		if len(part) > 0 {
			clusters = append(clusters, newCluster(part))
		}
	}
	return clusters
}

func newCluster(transactions []*models.Transaction) *Cluster {
	c := &Cluster{
		Transactions: transactions,
		AmountMin:    transactions[0].Amount,
		AmountMax:    transactions[0].Amount,
	}
	sum := decimal.Zero
	for _, tx := range transactions {
		if tx.Amount.LessThan(c.AmountMin) {
			c.AmountMin = tx.Amount
		}
		if tx.Amount.GreaterThan(c.AmountMax) {
			c.AmountMax = tx.Amount
		}
		sum = sum.Add(tx.Amount)
	}
	c.Centroid = sum.Div(decimal.NewFromInt(int64(len(transactions))))
	return c
}

func sortByDate(transactions []*models.Transaction) {
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].OccurredAt.Before(transactions[j].OccurredAt)
	})
}
