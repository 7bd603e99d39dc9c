package contracts

// WasteLiveItemsABI covers the two entry points the minter touches: the
// per-item price table and the payable mint.
const WasteLiveItemsABI = `[
  {
    "inputs": [
      {"internalType": "uint256", "name": "_itemId", "type": "uint256"},
      {"internalType": "uint256", "name": "_amount", "type": "uint256"}
    ],
    "name": "mintItem",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_itemId", "type": "uint256"}],
    "name": "itemPrices",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const (
	MethodItemPrices = "itemPrices"
	MethodMintItem   = "mintItem"
)
