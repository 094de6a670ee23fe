package discovery

import (
	"log"
	"math"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// Границы классификации интервалов (в днях)
const (
	MinIntervalDays = 10
	MaxIntervalDays = 400

	monthlyLow   = 27
	monthlyHigh  = 33
	biMonthlyLow = 55
	biMonthlyHi  = 65
	quarterlyLow = 85
	quarterlyHi  = 95

	// FrequentPer30Days — больше трех транзакций на скользящее 30-дневное
	// окно означает частые покупки, а не повторяющееся обязательство
	FrequentPer30Days = 3

	// InlierShare — минимальная доля транзакций в одной полосе сумм
	InlierShare = 0.80

	// MinConfidence — порог приемки кандидата
	MinConfidence = 0.40

	// monthlyDayStddevMax — предел отклонения дня месяца для месячного
	// семейства (±3 дня, как и допуск day_of_month_hint). Стабильный
	// 28-дневный цикл дрейфует по числам и уходит в custom_interval.
	monthlyDayStddevMax = 3.0
)

// Пороги коэффициента вариации сумм
const (
	cvFixedThreshold    = 0.05
	cvVariableThreshold = 0.30
)

// Engine — детерминированный конвейер обнаружения паттернов.
// Без ML и без LLM: каждое решение воспроизводимо и объяснимо.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Discover прогоняет кластер через стадии 0–9 и возвращает не более одного
// кандидата. При отказе возвращается код причины.
func (e *Engine) Discover(key models.GroupKey, cluster *Cluster) (*models.PatternCandidate, string) {
	// Стадия 0: валидация
	txns := dedupeByID(cluster.Transactions)
	sortByDate(txns)
	if len(txns) < MinClusterSize {
		return nil, models.ReasonTooFewTransactions
	}

	// Стадия 1: интервалы между последовательными датами, в целых днях
	intervals := computeIntervals(txns)

	// Стадия 2: фильтр слишком частых серий
	for _, gap := range intervals {
		if gap < MinIntervalDays {
			return nil, models.ReasonTooFrequent
		}
	}
	if exceedsRollingFrequency(txns) {
		return nil, models.ReasonTooFrequent
	}

	// Стадия 3: стабильность интервала
	intervalDays, stable := stableInterval(intervals)
	if !stable {
		return nil, models.ReasonUnstableInterval
	}
	if intervalDays < MinIntervalDays || intervalDays > MaxIntervalDays {
		return nil, models.ReasonUnstableInterval
	}

	// Стадия 5: полоса сумм внутри кластера; выбросы остаются привязанными
	// к паттерну, но не участвуют в статистике сумм
	inliers, outliers := splitInlierBand(txns)
	if float64(len(inliers)) < InlierShare*float64(len(txns)) {
		return nil, models.ReasonNoInlierBand
	}

	// Стадия 6: пересчет интервалов без дат-выбросов
	if len(outliers) > 0 {
		cleanIntervals := computeIntervals(inliers)
		if _, ok := stableInterval(cleanIntervals); !ok {
			return nil, models.ReasonUnstableInterval
		}
	}

	// Стадия 7: поведение суммы по CV полосы
	inlierAmounts := amounts(inliers)
	amountCV := cvFloat(decimalsToFloats(inlierAmounts))
	behavior := classifyAmountBehavior(amountCV)

	// Стадия 4+7: классификация случая
	days := daysOfMonth(txns)
	patternCase := classifyCase(intervalDays, behavior, days)

	// Стадия 8: взвешенная оценка уверенности
	intervalCV := cvFloat(intsToFloats(intervals))
	confidence := scoreConfidence(intervalCV, amountCV, days, len(txns), patternCase)
	if confidence < MinConfidence {
		return nil, models.ReasonLowConfidence
	}

	// Стадия 9: сборка кандидата
	candidate := &models.PatternCandidate{
		Key:                  key,
		Transactions:         txns,
		IntervalDays:         intervalDays,
		PatternCase:          patternCase,
		AmountBehavior:       behavior,
		RepresentativeAmount: medianDecimal(inlierAmounts),
		AmountMin:            minDecimal(amounts(txns)),
		AmountMax:            maxDecimal(amounts(txns)),
		Confidence:           confidence,
		IntervalCV:           intervalCV,
		AmountCV:             amountCV,
		OutlierIDs:           ids(outliers),
	}
	if isMonthlyFamily(patternCase) {
		hint := circularDayMedian(days)
		candidate.DayOfMonthHint = &hint
	}

	log.Printf("Discovery candidate: case=%s interval=%dd behavior=%s confidence=%.2f n=%d",
		patternCase, intervalDays, behavior, confidence, len(txns))

	return candidate, ""
}

func computeIntervals(txns []*models.Transaction) []int {
	intervals := make([]int, 0, len(txns)-1)
	for i := 1; i < len(txns); i++ {
		intervals = append(intervals, daysBetween(txns[i-1].OccurredAt, txns[i].OccurredAt))
	}
	return intervals
}

// exceedsRollingFrequency проверяет скользящее 30-дневное окно.
// Календарная группировка по месяцам здесь запрещена: зарплата 31-го числа
// и следующая 1-го попадают в разные месяцы, но в одно окно.
func exceedsRollingFrequency(txns []*models.Transaction) bool {
	for i := range txns {
		count := 0
		for j := i; j < len(txns); j++ {
			if daysBetween(txns[i].OccurredAt, txns[j].OccurredAt) < 30 {
				count++
			}
		}
		if count > FrequentPer30Days {
			return true
		}
	}
	return false
}

// stableInterval возвращает округленную медиану интервалов и признак
// стабильности: stddev ≤ max(3 дня, 0.15·медиана). Пропуск одного месяца
// дает единственный интервал около 2×медианы и валит проверку только если
// ломает общую стабильность.
func stableInterval(intervals []int) (int, bool) {
	if len(intervals) == 0 {
		return 0, false
	}
	floats := intsToFloats(intervals)
	median := medianFloat(floats)
	stddev := stddevFloat(floats)

	limit := math.Max(3, 0.15*median)
	if stddev > limit {
		return 0, false
	}
	return int(math.Round(median)), true
}

// splitInlierBand отделяет транзакции, выпадающие из полосы сумм вокруг
// медианы (тот же гибридный допуск, что и у сплиттера)
func splitInlierBand(txns []*models.Transaction) (inliers, outliers []*models.Transaction) {
	median := medianDecimal(amounts(txns))
	tolerance := amountTolerance(median)
	for _, tx := range txns {
		if tx.Amount.Sub(median).Abs().LessThanOrEqual(tolerance) {
			inliers = append(inliers, tx)
		} else {
			outliers = append(outliers, tx)
		}
	}
	return inliers, outliers
}

func classifyAmountBehavior(cv float64) string {
	switch {
	case cv <= cvFixedThreshold:
		return models.AmountFixed
	case cv <= cvVariableThreshold:
		return models.AmountVariable
	default:
		return models.AmountHighlyVariable
	}
}

// classifyCase назначает случай паттерна по стабильному интервалу.
// На пересечении диапазонов предпочитается более узкий (месячный).
// Интервал из месячного диапазона попадает в месячное семейство только
// при стабильном дне месяца; иначе это дрейфующий цикл (например, ровно
// 28 дней) и случай остается custom_interval.
func classifyCase(intervalDays int, behavior string, days []int) string {
	switch {
	case intervalDays >= monthlyLow && intervalDays <= monthlyHigh:
		if circularDayStddev(days) <= monthlyDayStddevMax {
			switch behavior {
			case models.AmountFixed:
				return models.CaseFixedMonthly
			case models.AmountVariable:
				return models.CaseVariableMonthly
			default:
				return models.CaseFlexibleMonthly
			}
		}
		return models.CaseCustomInterval
	case intervalDays >= biMonthlyLow && intervalDays <= biMonthlyHi:
		return models.CaseBiMonthly
	case intervalDays >= quarterlyLow && intervalDays <= quarterlyHi:
		return models.CaseQuarterly
	default:
		return models.CaseCustomInterval
	}
}

func isMonthlyFamily(patternCase string) bool {
	switch patternCase {
	case models.CaseFixedMonthly, models.CaseVariableMonthly, models.CaseFlexibleMonthly:
		return true
	}
	return false
}

// Веса слагаемых уверенности
const (
	weightIntervalRegularity = 0.35
	weightAmountRegularity   = 0.25
	weightDayRegularity      = 0.20
	weightSampleSufficiency  = 0.15
	weightCaseStrength       = 0.05
)

func scoreConfidence(intervalCV, amountCV float64, days []int, n int, patternCase string) float64 {
	intervalScore := clip01(1 - intervalCV)
	amountScore := clip01(1 - amountCV)
	dayScore := clip01(1 - circularDayStddev(days)/10)
	sampleScore := math.Min(1, float64(n)/6)

	caseScore := 1.0
	if patternCase == models.CaseFlexibleMonthly {
		caseScore = 0.6
	}

	return weightIntervalRegularity*intervalScore +
		weightAmountRegularity*amountScore +
		weightDayRegularity*dayScore +
		weightSampleSufficiency*sampleScore +
		weightCaseStrength*caseScore
}

func clip01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func dedupeByID(txns []*models.Transaction) []*models.Transaction {
	seen := make(map[string]bool, len(txns))
	out := make([]*models.Transaction, 0, len(txns))
	for _, tx := range txns {
		if seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		out = append(out, tx)
	}
	return out
}

func daysOfMonth(txns []*models.Transaction) []int {
	days := make([]int, len(txns))
	for i, tx := range txns {
		days[i] = tx.OccurredAt.UTC().Day()
	}
	return days
}

func amounts(txns []*models.Transaction) []decimal.Decimal {
	out := make([]decimal.Decimal, len(txns))
	for i, tx := range txns {
		out[i] = tx.Amount
	}
	return out
}

func ids(txns []*models.Transaction) []string {
	out := make([]string, len(txns))
	for i, tx := range txns {
		out[i] = tx.ID
	}
	return out
}

func minDecimal(values []decimal.Decimal) decimal.Decimal {
	min := values[0]
	for _, v := range values[1:] {
		if v.LessThan(min) {
			min = v
		}
	}
	return min
}

func maxDecimal(values []decimal.Decimal) decimal.Decimal {
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
