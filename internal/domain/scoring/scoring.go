// Пакет scoring — начисление баллов за проверку панели.
//
// Награда зависит от двух факторов:
//   - давность последней подтверждённой проверки панели (staleness)
//   - наличие пригодного доказательства (ссылка на фото)
//
// Без доказательства награда всегда 0. Панель, которую ни разу не
// проверяли, считается максимально устаревшей.
package scoring

import (
	"strings"
	"time"
)

// AverageMonth — средняя длина месяца (365.25 / 12 суток).
// Фиксированная величина делает расчёт независимым от календаря.
const AverageMonth = time.Duration(30.44 * 24 * float64(time.Hour))

// Баллы по корзинам давности.
const (
	PointsNoEvidence   = 0
	PointsUnderMonth   = 5
	PointsUnderQuarter = 10
	PointsUnderHalf    = 20
	PointsUnderYear    = 30
	PointsMax          = 40
)

// Staleness — давность последней проверки панели.
// Либо панель ни разу не проверялась, либо известно число прошедших месяцев.
type Staleness struct {
	never  bool
	months float64
}

// NeverChecked — панель ни разу не проверялась.
func NeverChecked() Staleness {
	return Staleness{never: true}
}

// Elapsed — с последней проверки прошло months месяцев.
func Elapsed(months float64) Staleness {
	return Staleness{months: months}
}

// StalenessBetween вычисляет давность на момент отправки проверки.
// lastCheckedAt == nil означает, что панель ни разу не проверялась.
func StalenessBetween(lastCheckedAt *time.Time, submittedAt time.Time) Staleness {
	if lastCheckedAt == nil {
		return NeverChecked()
	}
	return Elapsed(float64(submittedAt.Sub(*lastCheckedAt)) / float64(AverageMonth))
}

// IsNeverChecked сообщает, что панель ни разу не проверялась.
func (s Staleness) IsNeverChecked() bool {
	return s.never
}

// Months возвращает число месяцев и false для NeverChecked.
func (s Staleness) Months() (float64, bool) {
	if s.never {
		return 0, false
	}
	return s.months, true
}

// String — для логов.
func (s Staleness) String() string {
	if s.never {
		return "never"
	}
	return time.Duration(s.months * float64(AverageMonth)).Round(time.Hour).String()
}

// Score возвращает награду в баллах. Чистая функция, результат >= 0.
// Границы корзин включаются снизу: ровно 1.0 месяц попадает в [1, 3).
// Отрицательная давность попадает в корзину < 1.
func Score(s Staleness, hasUsableEvidence bool) int {
	if !hasUsableEvidence {
		return PointsNoEvidence
	}
	if s.never {
		return PointsMax
	}

	switch m := s.months; {
	case m < 1:
		return PointsUnderMonth
	case m < 3:
		return PointsUnderQuarter
	case m < 6:
		return PointsUnderHalf
	case m < 12:
		return PointsUnderYear
	default:
		return PointsMax
	}
}

// HasUsableEvidence — ссылка на доказательство задана и не пуста после TrimSpace.
func HasUsableEvidence(ref *string) bool {
	return ref != nil && strings.TrimSpace(*ref) != ""
}
