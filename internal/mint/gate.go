package mint

// Button labels shown for an item, in evaluation priority.
const (
	LabelConnectWallet = "Connect Wallet"
	LabelConfirming    = "Confirming..."
	LabelProcessing    = "Processing..."
	LabelLoadingPrice  = "Loading Price..."
	LabelNotForSale    = "Not for Sale"
	LabelMint          = "MINT ITEM"
)

type GateInput struct {
	Connected bool
	State     State
	Price     PriceQuote
}

// Gate decides the trigger label and whether minting is enabled. It is a pure
// function of its input.
func Gate(in GateInput) (label string, enabled bool) {
	enabled = in.Connected && !in.State.InFlight() && in.Price.Mintable()

	switch {
	case !in.Connected:
		label = LabelConnectWallet
	case in.State == StateAwaitingSignature:
		label = LabelConfirming
	case in.State.InFlight():
		label = LabelProcessing
	case in.Price.Status == PriceLoading:
		label = LabelLoadingPrice
	case in.Price.Status == PriceZero:
		label = LabelNotForSale
	default:
		label = LabelMint
	}
	return label, enabled
}
