package signing

import (
	"fmt"
	"time"

	"github.com/stelsign/stelsignd/strkey"
)

// stroopsPerLumen is the fixed decimal scale of the native asset.
const stroopsPerLumen = 10_000_000

// FormatStroops renders a stroop amount as a decimal XLM string at the
// fixed 7-decimal scale, e.g. 1000000000 -> "100.0000000".
func FormatStroops(v uint64) string {
	return fmt.Sprintf("%d.%07d", v/stroopsPerLumen, v%stroopsPerLumen)
}

// LineBreakAddress splits an encoded address into rows of 16, 20 and 20
// characters so a short label fits in front of the first row.
func LineBreakAddress(key [32]byte) [3]string {
	addr := strkey.Encode(key)
	return [3]string{addr[:16], addr[16:36], addr[36:]}
}

func formatTimebound(ts uint32) string {
	if ts == 0 {
		return "[no restriction]"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 (UTC)")
}
