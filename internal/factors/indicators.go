package factors

// Plain-float implementations of the indicator math. Inputs are close prices
// oldest first; callers guarantee minimum lengths.

func sma(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// rsi computes the Wilder RSI of the last period changes.
func rsi(values []float64, period int) float64 {
	if len(values) <= period {
		return 50
	}
	var gain, loss float64
	for i := len(values) - period; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff > 0 {
			gain += diff
		} else {
			loss -= diff
		}
	}
	if gain+loss == 0 {
		return 50
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macd returns the DIF line, signal line, and histogram for the standard
// 12/26/9 parameterization.
func macd(values []float64) (dif, dea, hist float64) {
	if len(values) < 26 {
		return 0, 0, 0
	}
	fast := emaSeries(values, 12)
	slow := emaSeries(values, 26)
	difSeries := make([]float64, len(values))
	for i := range values {
		difSeries[i] = fast[i] - slow[i]
	}
	deaSeries := emaSeries(difSeries, 9)
	last := len(values) - 1
	dif = difSeries[last]
	dea = deaSeries[last]
	hist = 2 * (dif - dea)
	return dif, dea, hist
}
