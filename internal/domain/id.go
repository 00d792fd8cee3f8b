package domain

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var idNode *snowflake.Node

func init() {
	n, err := snowflake.NewNode(1)
	if err != nil {
		panic(fmt.Sprintf("snowflake node: %v", err))
	}
	idNode = n
}

// NewID returns an opaque identifier such as "BILL-1881541815853056".
// Snowflakes keep IDs time-ordered, which the bill and payment listings
// rely on for their newest-first default ordering.
func NewID(prefix string) string {
	return prefix + "-" + idNode.Generate().String()
}

// ID prefixes per entity.
const (
	PrefixCustomer  = "CUS"
	PrefixMeter     = "MTR"
	PrefixReading   = "RDG"
	PrefixBill      = "BILL"
	PrefixPayment   = "PAY"
	PrefixComplaint = "CMP"
)
