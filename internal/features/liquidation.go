package features

// minSignificantLiqVolume is the minimum USD volume for a liquidation zone
// to count toward distance-to-zone, grounded on the original system's
// $1M significance floor.
const minSignificantLiqVolume = 1_000_000.0

// computeLiquidation fills Liquidation[10] from a heatmap snapshot and
// recent liquidation volumes. Returns all zeros when levels is empty
// (degraded mode, no coinglass key configured).
func computeLiquidation(levels []LiquidationLevel, vol1h, vol24h, currentPrice float64) [LiquidationLen]float64 {
	var out [LiquidationLen]float64
	if len(levels) == 0 || currentPrice == 0 {
		return out
	}

	out[fLongLiqDensity1Pct] = liqDensity(levels, currentPrice, "long", 0.01)
	out[fLongLiqDensity2Pct] = liqDensity(levels, currentPrice, "long", 0.02)
	out[fShortLiqDensity1Pct] = liqDensity(levels, currentPrice, "short", 0.01)
	out[fShortLiqDensity2Pct] = liqDensity(levels, currentPrice, "short", 0.02)

	out[fDistanceToLongLiq] = nearestLiqZoneDistance(levels, currentPrice, "long")
	out[fDistanceToShortLiq] = nearestLiqZoneDistance(levels, currentPrice, "short")

	out[fLiqImbalance] = liqImbalance(levels)

	out[fRecentLiqVolume1h] = vol1h
	out[fRecentLiqVolume24h] = vol24h

	out[fLiqCascadeRisk] = liqCascadeRisk(out[fLongLiqDensity1Pct], out[fShortLiqDensity1Pct], out[fDistanceToLongLiq], out[fDistanceToShortLiq])

	return out
}

func liqDensity(levels []LiquidationLevel, currentPrice float64, side string, pctRange float64) float64 {
	var total float64
	if side == "long" {
		threshold := currentPrice * (1 - pctRange)
		for _, l := range levels {
			if l.Side == "long" && l.Price >= threshold && l.Price < currentPrice {
				total += l.Volume
			}
		}
		return total
	}
	threshold := currentPrice * (1 + pctRange)
	for _, l := range levels {
		if l.Side == "short" && l.Price <= threshold && l.Price > currentPrice {
			total += l.Volume
		}
	}
	return total
}

// nearestLiqZoneDistance returns the normalized distance to the nearest
// significant (>= $1M) liquidation zone on the given side, or 0.1 when none
// qualifies — matching the original system's default.
func nearestLiqZoneDistance(levels []LiquidationLevel, currentPrice float64, side string) float64 {
	if side == "long" {
		var nearest *LiquidationLevel
		for i, l := range levels {
			if l.Side != "long" || l.Volume < minSignificantLiqVolume || l.Price >= currentPrice {
				continue
			}
			if nearest == nil || l.Price > nearest.Price {
				nearest = &levels[i]
			}
		}
		if nearest != nil {
			return (currentPrice - nearest.Price) / currentPrice
		}
		return 0.1
	}
	var nearest *LiquidationLevel
	for i, l := range levels {
		if l.Side != "short" || l.Volume < minSignificantLiqVolume || l.Price <= currentPrice {
			continue
		}
		if nearest == nil || l.Price < nearest.Price {
			nearest = &levels[i]
		}
	}
	if nearest != nil {
		return (nearest.Price - currentPrice) / currentPrice
	}
	return 0.1
}

func liqImbalance(levels []LiquidationLevel) float64 {
	var longVol, shortVol float64
	for _, l := range levels {
		if l.Side == "long" {
			longVol += l.Volume
		} else {
			shortVol += l.Volume
		}
	}
	total := longVol + shortVol
	if total == 0 {
		return 0
	}
	return (longVol - shortVol) / total
}

// liqCascadeRisk composes the same step thresholds the original system uses:
// large nearby density and very close zones each add to the [0,1] score.
func liqCascadeRisk(longDensity1Pct, shortDensity1Pct, distLong, distShort float64) float64 {
	risk := 0.0
	if longDensity1Pct > 10_000_000 {
		risk += 0.2
	}
	if shortDensity1Pct > 10_000_000 {
		risk += 0.2
	}
	risk += proximityRisk(distLong)
	risk += proximityRisk(distShort)
	return clamp(risk, 0, 1)
}

func proximityRisk(distance float64) float64 {
	switch {
	case distance < 0.01:
		return 0.3
	case distance < 0.02:
		return 0.15
	default:
		return 0
	}
}
