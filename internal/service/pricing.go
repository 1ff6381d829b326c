package service

// PlatformFeePercent is the marketplace's cut of every paid booking.
const PlatformFeePercent = 5

// PlatformFee returns the fee in minor units for a booking total,
// rounded half-up to the nearest unit. The same formula runs at
// reservation time and again at confirmation time, so the two always
// agree.
func PlatformFee(totalCents int64) int64 {
	return (totalCents*PlatformFeePercent + 50) / 100
}

// FeeSplit returns the platform fee and the shop's net for a total.
// fee + net == totalCents always.
func FeeSplit(totalCents int64) (fee, net int64) {
	fee = PlatformFee(totalCents)
	return fee, totalCents - fee
}

// SplitEven distributes totalCents across n slots using the largest-
// remainder method: every slot gets the floor share and the first
// totalCents%n slots one extra unit. The parts always sum exactly to
// totalCents; no unit is dropped or invented. n must be >= 1.
func SplitEven(totalCents int64, n int) []int64 {
	parts := make([]int64, n)
	base := totalCents / int64(n)
	remainder := totalCents % int64(n)
	for i := range parts {
		parts[i] = base
		if int64(i) < remainder {
			parts[i]++
		}
	}
	return parts
}
