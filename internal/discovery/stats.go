package discovery

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// dateOnly отбрасывает время: все расчеты интервалов ведутся в целых днях по UTC
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween возвращает число целых дней между двумя датами
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevFloat возвращает выборочное стандартное отклонение (n-1)
func stddevFloat(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanFloat(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// cvFloat возвращает коэффициент вариации (stddev/mean), 0 при нулевом среднем
func cvFloat(values []float64) float64 {
	mean := meanFloat(values)
	if mean == 0 {
		return 0
	}
	return stddevFloat(values) / mean
}

func medianFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// medianDecimal возвращает медиану сумм; для четного числа — среднее двух средних
func medianDecimal(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
	}
	return sorted[mid]
}

func intsToFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func decimalsToFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = v.Float64()
	}
	return out
}

// circularPositions переводит дни месяца в позиции на кольце из 30 точек
// и поворачивает их так, чтобы самый большой разрыв оказался "снаружи".
// Так 31-е и 1-е число (зарплата на границе месяцев) оказываются соседями.
func circularPositions(days []int) []float64 {
	if len(days) == 0 {
		return nil
	}

	mapped := make([]int, len(days))
	for i, d := range days {
		mapped[i] = d % 30
	}

	// Ищем самый большой круговой разрыв между занятыми позициями
	distinct := make([]int, len(mapped))
	copy(distinct, mapped)
	sort.Ints(distinct)
	uniq := distinct[:0]
	for i, v := range distinct {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}

	gapStart := uniq[0]
	maxGap := -1
	for i := range uniq {
		next := uniq[(i+1)%len(uniq)]
		gap := (next - uniq[i] + 30) % 30
		if len(uniq) == 1 {
			gap = 30
		}
		if gap > maxGap {
			maxGap = gap
			gapStart = next
		}
	}

	// Позиции отсчитываются от конца самого большого разрыва
	out := make([]float64, len(mapped))
	for i, v := range mapped {
		out[i] = float64((v - gapStart + 30) % 30)
	}
	return out
}

// circularDaySpan возвращает минимальную круговую ширину набора дней месяца
func circularDaySpan(days []int) int {
	positions := circularPositions(days)
	if len(positions) == 0 {
		return 0
	}
	max := 0.0
	for _, p := range positions {
		if p > max {
			max = p
		}
	}
	return int(max)
}

// circularDayStddev возвращает выборочное отклонение дней месяца
// с учетом переноса через границу месяца
func circularDayStddev(days []int) float64 {
	return stddevFloat(circularPositions(days))
}

// circularDayMedian возвращает медианный день месяца с учетом переноса
func circularDayMedian(days []int) int {
	if len(days) == 0 {
		return 0
	}
	positions := circularPositions(days)
	median := medianFloat(positions)

	// Восстанавливаем смещение: позиция 0 соответствует первому дню окна
	minDay := 0
	for i, p := range positions {
		if p == 0 {
			minDay = days[i] % 30
			break
		}
	}
	day := (minDay + int(math.Round(median))) % 30
	if day == 0 {
		day = 30
	}
	return day
}
