package order

// Operation names a state-changing action on an order.
type Operation string

const (
	OpModify   Operation = "modify"
	OpFinalize Operation = "finalize"
	OpVoid     Operation = "void"
	OpRefund   Operation = "refund"
)

// transitions lists, per status, the operations allowed and the status they
// lead to. Anything absent is a conflict.
var transitions = map[Status]map[Operation]Status{
	StatusOpen: {
		OpModify:   StatusOpen,
		OpFinalize: StatusPaid,
		OpVoid:     StatusVoid,
	},
	StatusPaid: {
		OpRefund: StatusRefunded,
	},
	StatusVoid: {
		OpVoid: StatusVoid,
	},
}

// Next returns the status o reaches by applying op, or a *TransitionError.
func (o *Order) Next(op Operation) (Status, error) {
	if next, ok := transitions[o.Status][op]; ok {
		return next, nil
	}
	return "", &TransitionError{OrderID: o.ID, From: o.Status, Operation: op}
}

// Mutable reports whether items and discounts may still change.
func (o *Order) Mutable() bool {
	return o.Status == StatusOpen
}

// Terminal reports whether no operation can leave s.
func (s Status) Terminal() bool {
	return s == StatusVoid || s == StatusRefunded
}
