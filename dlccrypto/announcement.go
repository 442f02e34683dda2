package dlccrypto

import (
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/tee8z/weather-oracle/event"
	"github.com/tee8z/weather-oracle/outcome"
)

// announcementExpiryDelay is how far past the signing date the DLC
// refund path opens.
const announcementExpiryDelay = 24 * time.Hour

// BuildAnnouncement enumerates every outcome for (n, k) in canonical
// order and derives one locking point per outcome message, producing
// the announcement stored with the event at creation time. Outcome i's locking point sits at LockingPoints[i], so a
// published Outcome::Attestation(i) identity is just its position.
func BuildAnnouncement(oraclePub *secp256k1.PublicKey, nonce [32]byte, n, k int, signingDate time.Time) (event.Announcement, error) {
	noncePoint, err := NoncePoint(nonce)
	if err != nil {
		return event.Announcement{}, err
	}

	outcomes := outcome.Enumerate(n, k)
	points := make([][]byte, len(outcomes))
	for i, o := range outcomes {
		lp := LockingPoint(oraclePub, noncePoint, outcome.EncodeMessage(o))
		points[i] = lp.SerializeCompressed()
	}
	return event.Announcement{
		Expiry:        signingDate.Add(announcementExpiryDelay).UTC(),
		LockingPoints: points,
	}, nil
}
