package features

// Named accessors onto Vector for the slots other packages (regime,
// strategy, gates) need to read by meaning rather than raw offset. Vector
// stays a plain [100]float64 at the wire/storage boundary; these are the
// only sanctioned way to read it elsewhere in the module.

func (v Vector) RSI7() float64    { return v[TechnicalStart+fRSI7] }
func (v Vector) RSI14() float64   { return v[TechnicalStart+fRSI14] }
func (v Vector) EMA9() float64    { return v[TechnicalStart+fEMA9] }
func (v Vector) EMA21() float64   { return v[TechnicalStart+fEMA21] }
func (v Vector) EMA50() float64   { return v[TechnicalStart+fEMA50] }
func (v Vector) EMA200() float64  { return v[TechnicalStart+fEMA200] }
func (v Vector) MACDLine() float64      { return v[TechnicalStart+fMACDLine] }
func (v Vector) MACDSignal() float64    { return v[TechnicalStart+fMACDSignal] }
func (v Vector) MACDHistogram() float64 { return v[TechnicalStart+fMACDHistogram] }
func (v Vector) BBUpper() float64    { return v[TechnicalStart+fBBUpper] }
func (v Vector) BBLower() float64    { return v[TechnicalStart+fBBLower] }
func (v Vector) BBPosition() float64 { return v[TechnicalStart+fBBPosition] }
func (v Vector) ATR14() float64        { return v[TechnicalStart+fATR14] }
func (v Vector) ATRPercentile() float64 { return v[TechnicalStart+fATRPercentile] }
func (v Vector) ADX() float64     { return v[TechnicalStart+fADX] }
func (v Vector) PlusDI() float64  { return v[TechnicalStart+fPlusDI] }
func (v Vector) MinusDI() float64 { return v[TechnicalStart+fMinusDI] }
func (v Vector) StochK() float64  { return v[TechnicalStart+fStochK] }
func (v Vector) StochD() float64  { return v[TechnicalStart+fStochD] }
func (v Vector) VWAP() float64    { return v[TechnicalStart+fVWAP] }

func (v Vector) BodyRatio() float64        { return v[PriceActionStart+fBodyRatio] }
func (v Vector) UpperWickRatio() float64   { return v[PriceActionStart+fUpperWickRatio] }
func (v Vector) LowerWickRatio() float64   { return v[PriceActionStart+fLowerWickRatio] }
func (v Vector) RangeExpansion() float64   { return v[PriceActionStart+fRangeExpansion] }
func (v Vector) BreakoutStrength() float64 { return v[PriceActionStart+fBreakoutStrength] }
func (v Vector) SwingHighDist() float64    { return v[PriceActionStart+fSwingHighDist] }
func (v Vector) SwingLowDist() float64     { return v[PriceActionStart+fSwingLowDist] }
func (v Vector) HHCount() float64          { return v[PriceActionStart+fHHCount] }
func (v Vector) LLCount() float64          { return v[PriceActionStart+fLLCount] }
func (v Vector) HLCount() float64          { return v[PriceActionStart+fHLCount] }
func (v Vector) LHCount() float64          { return v[PriceActionStart+fLHCount] }
func (v Vector) TrendStructure() float64   { return v[PriceActionStart+fTrendStructure] }
func (v Vector) ConsolidationBars() float64       { return v[PriceActionStart+fConsolidationBars] }
func (v Vector) VolatilityContraction() float64   { return v[PriceActionStart+fVolatilityContraction] }
func (v Vector) KeyLevelDistance() float64        { return v[PriceActionStart+fKeyLevelDistance] }

func (v Vector) Trend15m() float64    { return v[MTFStart+fTrend15m] }
func (v Vector) Strength15m() float64 { return v[MTFStart+fStrength15m] }
func (v Vector) RSI15m() float64      { return v[MTFStart+fRSI15m] }
func (v Vector) Trend5m() float64     { return v[MTFStart+fTrend5m] }
func (v Vector) Strength5m() float64  { return v[MTFStart+fStrength5m] }
func (v Vector) RSI5m() float64       { return v[MTFStart+fRSI5m] }
func (v Vector) Momentum3m() float64  { return v[MTFStart+fMomentum3m] }
func (v Vector) Momentum1m() float64  { return v[MTFStart+fMomentum1m] }
func (v Vector) MTFAlignment() float64 { return v[MTFStart+fMTFAlignment] }
func (v Vector) MTFConfluenceScore() float64 { return v[MTFStart+fMTFConfluenceScore] }
func (v Vector) HTFSupportDist() float64    { return v[MTFStart+fHTFSupportDist] }
func (v Vector) HTFResistanceDist() float64 { return v[MTFStart+fHTFResistanceDist] }
func (v Vector) TFDivergence() float64      { return v[MTFStart+fTFDivergence] }
func (v Vector) MomentumAcceleration() float64 { return v[MTFStart+fMomentumAcceleration] }
func (v Vector) TrendAgeBars() float64         { return v[MTFStart+fTrendAgeBars] }

// MTFAlignmentCount reports how many of the four timeframe signals agree,
// rounded from the [-1,1] alignment score back to an integer count out of 4,
// used by the gate pipeline's mtf_alignment≥2 predicate.
func (v Vector) MTFAlignmentCount() int {
	agree := (v.MTFAlignment()*4 + 4) / 2
	return int(agree + 0.5)
}

func (v Vector) ExchangeInflow() float64  { return v[OnChainStart+fExchangeInflow] }
func (v Vector) ExchangeOutflow() float64 { return v[OnChainStart+fExchangeOutflow] }
func (v Vector) Netflow() float64         { return v[OnChainStart+fNetflow] }
func (v Vector) FlowVelocity() float64    { return v[OnChainStart+fFlowVelocity] }
func (v Vector) FlowPercentile() float64  { return v[OnChainStart+fFlowPercentile] }
func (v Vector) LargeTxCount() float64    { return v[OnChainStart+fLargeTxCount] }
func (v Vector) WhaleAccumulation() float64 { return v[OnChainStart+fWhaleAccumulation] }
func (v Vector) WhaleDistribution() float64 { return v[OnChainStart+fWhaleDistribution] }
func (v Vector) SmartMoneyFlow() float64    { return v[OnChainStart+fSmartMoneyFlow] }
func (v Vector) WhaleActivityScore() float64 { return v[OnChainStart+fWhaleActivityScore] }
func (v Vector) SOPR() float64 { return v[OnChainStart+fSOPR] }

func (v Vector) LongLiqDensity1Pct() float64  { return v[LiquidationStart+fLongLiqDensity1Pct] }
func (v Vector) ShortLiqDensity1Pct() float64 { return v[LiquidationStart+fShortLiqDensity1Pct] }
func (v Vector) DistanceToLongLiq() float64   { return v[LiquidationStart+fDistanceToLongLiq] }
func (v Vector) DistanceToShortLiq() float64  { return v[LiquidationStart+fDistanceToShortLiq] }
func (v Vector) LiqImbalance() float64        { return v[LiquidationStart+fLiqImbalance] }
func (v Vector) LiqCascadeRisk() float64      { return v[LiquidationStart+fLiqCascadeRisk] }

func (v Vector) FundingCurrent() float64   { return v[FundingStart+fFundingCurrent] }
func (v Vector) FundingPredicted() float64 { return v[FundingStart+fFundingPredicted] }
func (v Vector) FundingExtreme() bool      { return v[FundingStart+fFundingExtreme] != 0 }
func (v Vector) FundingVsPriceDiv() float64 { return v[FundingStart+fFundingVsPriceDiv] }
func (v Vector) TimeToFunding() float64    { return v[FundingStart+fTimeToFunding] }
func (v Vector) FundingPercentile() float64 { return v[FundingStart+fFundingPercentile] }

func (v Vector) CVD() float64                    { return v[MicrostructureStart+fCVD] }
func (v Vector) CVDTrend() float64               { return v[MicrostructureStart+fCVDTrend] }
func (v Vector) OrderbookImbalance() float64      { return v[MicrostructureStart+fOrderbookImbalance] }
func (v Vector) OrderbookImbalance10() float64    { return v[MicrostructureStart+fOrderbookImbalance10] }
func (v Vector) LargeOrderFlow() float64          { return v[MicrostructureStart+fLargeOrderFlow] }
func (v Vector) TapeSpeed() float64               { return v[MicrostructureStart+fTapeSpeed] }
func (v Vector) AggressorRatio() float64          { return v[MicrostructureStart+fAggressorRatio] }
func (v Vector) SpreadBps() float64               { return v[MicrostructureStart+fSpreadBps] }
func (v Vector) SpreadPercentile() float64        { return v[MicrostructureStart+fSpreadPercentile] }
func (v Vector) DepthRatio() float64              { return v[MicrostructureStart+fDepthRatio] }
func (v Vector) VWAPDistance() float64            { return v[MicrostructureStart+fVWAPDistance] }
func (v Vector) POCDistance() float64             { return v[MicrostructureStart+fPOCDistance] }
