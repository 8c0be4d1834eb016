package pricefeed

import (
	"math"

	"github.com/sirupsen/logrus"
)

// ValidatedPrice is a currency whose rate passed validation.
type ValidatedPrice struct {
	Currency Currency
	Rate     float64
}

// Validate keeps the currencies whose rate is strictly positive and finite,
// in Currencies order. Every rejected currency is logged with the reason.
func Validate(snapshot RateSnapshot, log logrus.FieldLogger) []ValidatedPrice {
	valid := make([]ValidatedPrice, 0, len(Currencies))

	for _, c := range Currencies {
		rate := snapshot.Rate(c)

		if reason, ok := rejectReason(rate); !ok {
			log.WithFields(logrus.Fields{
				"currency": c,
				"rate":     rate,
				"reason":   reason,
			}).Warnf("⚠️ Skipping %s due to invalid price", c)

			continue
		}

		valid = append(valid, ValidatedPrice{Currency: c, Rate: rate})
	}

	return valid
}

func rejectReason(rate float64) (string, bool) {
	switch {
	case math.IsNaN(rate):
		return "not a number", false
	case math.IsInf(rate, 0):
		return "infinite", false
	case rate == 0:
		return "zero", false
	case rate < 0:
		return "negative", false
	}

	return "", true
}
