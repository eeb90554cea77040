package enums

// PaymentMethod describes how a shopper settles an order.
type PaymentMethod string

const (
	// PaymentMethodCard is settled by the external payment provider before checkout.
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodCashPickup is paid at pickup; placing the order is the commitment.
	PaymentMethodCashPickup PaymentMethod = "cash_pickup"
)

var paymentMethods = newClosedSet("payment method", PaymentMethodCard, PaymentMethodCashPickup)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) { return paymentMethods.parse(value) }
