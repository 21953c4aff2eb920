package fluid

import (
	"Go2WlanSpectra/internal/model"
	"math"
)

// HE SU data rates in Mb/s, 20 MHz, one spatial stream, 800 ns guard interval.
var heRates = []float64{8.6, 17.2, 25.8, 34.4, 51.6, 68.8, 77.4, 86.0, 103.2, 114.7, 129.0, 143.4}

// Minimum SINR in dB for each HE MCS.
var heMinSINR = []float64{2, 5, 9, 11, 15, 18, 20, 25, 29, 31, 34, 37}

const (
	legacyRate    = 54.0 // Mb/s, 802.11a OFDM
	legacyMinSINR = 25.0

	slot        = 9e-6
	sifs        = 16e-6
	difs        = sifs + 3*slot
	cwMin       = 15
	heHeader    = 48e-6
	ofdmHeader  = 20e-6
	ackTime     = 44e-6
	rtsCtsTime  = 2*sifs + 2*28e-6
	macOverhead = 38 // bytes: QoS MAC header, LLC/SNAP, FCS
	ipUDPHeader = 28
	ampduLimit  = 65535
	retryLimit  = 7

	noiseFloor = -94.0 // dBm, 20 MHz with a 7 dB noise figure
)

// phyRate returns the data rate of a generation in Mb/s.
func phyRate(gen model.Generation, mcs int) float64 {
	if gen == model.Legacy {
		return legacyRate
	}
	return heRates[clampMCS(mcs)]
}

func minSINR(gen model.Generation, mcs int) float64 {
	if gen == model.Legacy {
		return legacyMinSINR
	}
	return heMinSINR[clampMCS(mcs)]
}

func clampMCS(mcs int) int {
	if mcs < 0 {
		return 0
	}
	if mcs >= len(heRates) {
		return len(heRates) - 1
	}
	return mcs
}

// frameBytes is the on-air size of a UDP payload of the given size.
func frameBytes(payload int) int {
	return payload + ipUDPHeader + macOverhead
}

// aggregation returns how many MPDUs share one channel access.
func aggregation(gen model.Generation, payload, queued int) int {
	if gen == model.Legacy {
		return 1
	}
	n := ampduLimit / (frameBytes(payload) + 4)
	if queued < n {
		n = queued
	}
	if n < 1 {
		n = 1
	}
	return n
}

// airtime is the channel time, in seconds, of one successful packet including
// its share of the access overhead.
func airtime(gen model.Generation, mcs, payload, queued int, rtsCts bool) float64 {
	header := heHeader
	if gen == model.Legacy {
		header = ofdmHeader
	}
	access := difs + float64(cwMin)/2*slot + header + sifs + ackTime
	if rtsCts {
		access += rtsCtsTime
	}
	bits := float64(frameBytes(payload) * 8)
	return access/float64(aggregation(gen, payload, queued)) + bits/(phyRate(gen, mcs)*1e6)
}

// pathLoss is the Friis free-space loss in dB between two positions.
func pathLoss(a, b model.Position, freqMHz float64) float64 {
	d := math.Sqrt((a.X-b.X)*(a.X-b.X) + (a.Y-b.Y)*(a.Y-b.Y) + (a.Z-b.Z)*(a.Z-b.Z))
	if d < 0.1 {
		d = 0.1
	}
	return 20*math.Log10(d) + 20*math.Log10(freqMHz*1e6) - 147.55
}

// packetError is the probability that a single attempt fails at the given SINR.
func packetError(sinr, required float64) float64 {
	return 1 / (1 + math.Exp(1.5*(sinr-required)))
}

func dbmToMw(dbm float64) float64 {
	return math.Pow(10, dbm/10)
}

func mwToDbm(mw float64) float64 {
	return 10 * math.Log10(mw)
}

// expectedAttempts is the mean number of transmissions of a packet under
// per-attempt failure probability p and the retry limit.
func expectedAttempts(p float64) float64 {
	if p <= 0 {
		return 1
	}
	if p >= 1 {
		return retryLimit
	}
	return (1 - math.Pow(p, retryLimit)) / (1 - p)
}

// collisionProbability approximates the chance that an access collides when k
// stations contend with the minimum contention window.
func collisionProbability(k int) float64 {
	if k <= 1 {
		return 0
	}
	tau := 2.0 / float64(cwMin+1)
	return 1 - math.Pow(1-tau, float64(k-1))
}
