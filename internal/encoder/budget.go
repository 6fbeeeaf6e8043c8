package encoder

// encodePass encodes an already resized surface at a quality factor
// given in tenths.
type encodePass func(tenths int) ([]byte, error)

// encodeWithinBudget runs pass starting at startTenths. While a budget
// is set and exceeded, it retries one step lower until the budget is met
// or the quality floor was used. The floor result is returned even when
// it is still over budget.
//
// onRetry, if not nil, is called with the size that triggered each retry.
func encodeWithinBudget(
	startTenths int,
	budget int,
	pass encodePass,
	onRetry func(tenths int, size int),
) (*Result, error) {
	startTenths = min(max(startTenths, QualityFloor), QualityCeiling)

	// At most startTenths-QualityFloor+1 passes, the floor pass always returns
	tenths := startTenths
	for attempts := 1; ; attempts++ {
		data, err := pass(tenths)
		if err != nil {
			return nil, err
		}

		if budget <= 0 || len(data) <= budget || tenths <= QualityFloor {
			return &Result{
				Data:     data,
				Quality:  float64(tenths) / 10,
				Attempts: attempts,
			}, nil
		}

		if onRetry != nil {
			onRetry(tenths, len(data))
		}
		tenths -= QualityStep
	}
}
