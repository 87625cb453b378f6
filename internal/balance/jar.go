package balance

import (
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const daysPerYear = 365

// JarWithCurrentValue is a Jar plus its projected value at evaluation time.
type JarWithCurrentValue struct {
	domain.Jar
	CurrentValue decimal.Decimal `json:"currentValue"`
	Accrued      decimal.Decimal `json:"accrued"`
	ElapsedDays  int             `json:"elapsedDays"`
}

// CalculateJar projects the value of jar at now. Accrual stops at the
// maturity date; a jar that has not started yet is worth its principal.
// The input is not modified.
func CalculateJar(jar domain.Jar, now time.Time) JarWithCurrentValue {
	end := civil.DateOf(now)
	if jar.MaturityDate != nil && jar.MaturityDate.Before(end) {
		end = *jar.MaturityDate
	}

	days := end.DaysSince(jar.StartDate)
	if days < 0 {
		days = 0
	}

	rate := jar.AnnualRate.Div(decimal.NewFromInt(100))

	var value decimal.Decimal
	switch jar.Compounding {
	case domain.CompoundingDaily:
		daily, _ := rate.Div(decimal.NewFromInt(daysPerYear)).Float64()
		factor := math.Pow(1+daily, float64(days))
		value = jar.Principal.Mul(decimal.NewFromFloat(factor))
	default:
		interest := jar.Principal.Mul(rate).Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(daysPerYear))
		value = jar.Principal.Add(interest)
	}
	value = value.Round(2)

	return JarWithCurrentValue{
		Jar:          jar,
		CurrentValue: value,
		Accrued:      value.Sub(jar.Principal),
		ElapsedDays:  days,
	}
}

// TotalJarValue sums the projected value of every jar.
func TotalJarValue(jars []domain.Jar, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, j := range jars {
		total = total.Add(CalculateJar(j, now).CurrentValue)
	}
	return total
}
