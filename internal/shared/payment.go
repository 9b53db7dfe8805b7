package shared

// PaymentMethod enumerates accepted tender types for sales and expenses.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentMpesa PaymentMethod = "MPESA"
	PaymentCard  PaymentMethod = "CARD"
)

// Valid reports whether the payment method is one of the known values.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentMpesa || m == PaymentCard
}
