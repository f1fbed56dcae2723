package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// bumpByBasisPoints computes base * (10000+bps) / 10000 in big.Int
// arithmetic, clamping into the 256-bit range with math.U256 the way
// go-ethereum's own gas-price bump helpers guard against overflow before
// truncating back down to a machine word.
func bumpByBasisPoints(base uint64, bps uint32) uint64 {
	total := new(big.Int).SetUint64(base)
	factor := new(big.Int).SetUint64(10000 + uint64(bps))
	total.Mul(total, factor)
	total.Div(total, big.NewInt(10000))
	return math.U256(total).Uint64()
}
