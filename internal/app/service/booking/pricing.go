package booking

// Price computes the total private-class price in paisa:
//
//	baseRateRupees × durationHours × durationMonths × (1 + experienceLevel/10)
//
// Pure integer arithmetic so the same inputs always produce the same amount;
// the engine recomputes it at stage time and the staged amount is what the
// gateway verification is checked against. Client-supplied prices are never
// trusted.
func Price(baseRateRupees int64, durationHours, durationMonths, experienceLevel int) int64 {
	if experienceLevel < 0 {
		experienceLevel = 0
	}
	// baseRate × (1 + lvl/10) expressed as baseRate × (10+lvl) / 10 keeps
	// everything integral: the base rate is a multiple of 10 rupees.
	rupees := baseRateRupees * int64(10+experienceLevel) / 10 * int64(durationHours) * int64(durationMonths)
	return rupees * 100
}
