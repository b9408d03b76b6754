package broker

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

const (
	kisLiveURL    = "https://openapi.koreainvestment.com:9443"
	kisVirtualURL = "https://openapivts.koreainvestment.com:29443"

	kisLiveWSURL    = "ws://ops.koreainvestment.com:21000"
	kisVirtualWSURL = "ws://ops.koreainvestment.com:31000"

	kisRequestTimeout = 30 * time.Second
)

// KIS transaction IDs. Virtual-environment order/balance calls use the
// V-prefixed variants.
const (
	kisTrQuote         = "FHKST01010100"
	kisTrUniverse      = "FHPST01710000"
	kisTrDailyCandles  = "FHKST01010400"
	kisTrIndexPrice    = "FHPUP02110000"
	kisTrInvestorTrend = "FHPTJ04400000"
)

// kisMarketCodes maps market names to KIS composite index codes.
var kisMarketCodes = map[string]string{
	"KOSPI":  "0001",
	"KOSDAQ": "1001",
}

// KISBroker talks the KIS REST protocol and hands out websocket stream
// credentials. Token state is guarded; the client is safe for concurrent use.
type KISBroker struct {
	cfg    KISConfig
	client *resty.Client
	log    *logger.Logger

	mu          sync.Mutex
	accessToken string
}

// NewKISBroker creates the KIS wire adapter.
func NewKISBroker(cfg KISConfig, log *logger.Logger) (*KISBroker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := kisLiveURL
	if cfg.Virtual {
		baseURL = kisVirtualURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(kisRequestTimeout)

	return &KISBroker{
		cfg:    cfg,
		client: client,
		log:    log,
	}, nil
}

// Name implements Broker.
func (b *KISBroker) Name() string { return "kis" }

// Connect issues the OAuth access token.
func (b *KISBroker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.issueTokenLocked(ctx)
}

func (b *KISBroker) issueTokenLocked(ctx context.Context) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type": "client_credentials",
			"appkey":     b.cfg.AppKey,
			"appsecret":  b.cfg.AppSecret,
		}).
		SetResult(&out).
		Post("/oauth2/tokenP")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerAuthFailed, "token request failed", err)
	}

	if resp.IsError() || out.AccessToken == "" {
		return errors.Newf(errors.ErrCodeBrokerAuthFailed, "token request rejected: %s", resp.Status())
	}

	b.accessToken = out.AccessToken
	b.log.Info("kis token issued", zap.Bool("virtual", b.cfg.Virtual))

	return nil
}

func (b *KISBroker) ensureToken(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" {
		return nil
	}

	return b.issueTokenLocked(ctx)
}

func (b *KISBroker) headers(trID string) map[string]string {
	b.mu.Lock()
	token := b.accessToken
	b.mu.Unlock()

	return map[string]string{
		"Content-Type":  "application/json",
		"authorization": "Bearer " + token,
		"appkey":        b.cfg.AppKey,
		"appsecret":     b.cfg.AppSecret,
		"tr_id":         trID,
	}
}

// accountParts splits "12345678-01" into CANO and ACNT_PRDT_CD.
func (b *KISBroker) accountParts() (string, string) {
	parts := strings.SplitN(b.cfg.AccountNo, "-", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	return parts[0], "01"
}

// StreamAuth issues the websocket approval key.
func (b *KISBroker) StreamAuth(ctx context.Context) (StreamAuth, error) {
	var out struct {
		ApprovalKey string `json:"approval_key"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type": "client_credentials",
			"appkey":     b.cfg.AppKey,
			"secretkey":  b.cfg.AppSecret,
		}).
		SetResult(&out).
		Post("/oauth2/Approval")
	if err != nil {
		return StreamAuth{}, errors.Wrap(errors.ErrCodeConnectionFailed, "approval key request failed", err)
	}

	if resp.IsError() || out.ApprovalKey == "" {
		return StreamAuth{}, errors.Newf(errors.ErrCodeConnectionFailed, "approval key rejected: %s", resp.Status())
	}

	url := kisLiveWSURL
	if b.cfg.Virtual {
		url = kisVirtualWSURL
	}

	return StreamAuth{URL: url, ApprovalKey: out.ApprovalKey}, nil
}

// GetQuote implements Broker.
func (b *KISBroker) GetQuote(ctx context.Context, ticker string) (types.Quote, error) {
	if err := b.ensureToken(ctx); err != nil {
		return types.Quote{}, err
	}

	var out struct {
		Output struct {
			Price      string `json:"stck_prpr"`
			ChangeRate string `json:"prdy_ctrt"`
			Volume     string `json:"acml_vol"`
			High       string `json:"stck_hgpr"`
			Low        string `json:"stck_lwpr"`
			Open       string `json:"stck_oprc"`
		} `json:"output"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(kisTrQuote)).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_INPUT_ISCD":         ticker,
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/quotations/inquire-price")
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "quote %s", ticker)
	}

	if resp.IsError() {
		return types.Quote{}, errors.Newf(errors.ErrCodeBrokerRequestFailed, "quote %s: %s", ticker, resp.Status())
	}

	o := out.Output

	return types.Quote{
		Ticker:     ticker,
		Price:      parseInt(o.Price),
		ChangeRate: parseFloat(o.ChangeRate),
		Volume:     parseInt(o.Volume),
		High:       parseInt(o.High),
		Low:        parseInt(o.Low),
		Open:       parseInt(o.Open),
	}, nil
}

type kisUniverseItem struct {
	Ticker          string `json:"mksc_shrn_iscd"`
	Name            string `json:"hts_kor_isnm"`
	Sector          string `json:"bstp_kor_isnm"`
	Price           string `json:"stck_prpr"`
	Open            string `json:"stck_oprc"`
	High            string `json:"stck_hgpr"`
	Low             string `json:"stck_lwpr"`
	Volume          string `json:"acml_vol"`
	PrevVolume      string `json:"prdy_vol"`
	ChangeRate      string `json:"prdy_ctrt"`
	MarketCap       string `json:"stck_avls"`
	TradeAmount     string `json:"acml_tr_pbmn"`
	PrevTradeAmount string `json:"prdy_tr_pbmn"`
	ListedShares    string `json:"lstn_stcn"`
}

// GetUniverseSnapshot implements Broker. One request per market returns every
// member instrument with derived volume/traded-value ratios.
func (b *KISBroker) GetUniverseSnapshot(ctx context.Context, market string) ([]types.StockSnapshot, error) {
	code, ok := kisMarketCodes[market]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown market %q", market)
	}

	if err := b.ensureToken(ctx); err != nil {
		return nil, err
	}

	var out struct {
		Output []kisUniverseItem `json:"output"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(kisTrUniverse)).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_INPUT_ISCD":         code,
			"FID_DIV_CLS_CODE":       "0",
			"FID_BLNG_CLS_CODE":      "0",
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "universe snapshot %s", market)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeBrokerRequestFailed, "universe snapshot %s: %s", market, resp.Status())
	}

	rows := make([]types.StockSnapshot, 0, len(out.Output))

	for _, item := range out.Output {
		if item.Ticker == "" {
			continue
		}

		rows = append(rows, snapshotFromUniverseItem(item, market))
	}

	return rows, nil
}

func snapshotFromUniverseItem(item kisUniverseItem, market string) types.StockSnapshot {
	volume := parseInt(item.Volume)
	prevVolume := parseInt(item.PrevVolume)
	tradeAmount := parseInt(item.TradeAmount)
	prevTradeAmount := parseInt(item.PrevTradeAmount)
	listedShares := parseInt(item.ListedShares)

	row := types.StockSnapshot{
		Ticker:      item.Ticker,
		Name:        item.Name,
		Market:      market,
		Sector:      item.Sector,
		Price:       parseInt(item.Price),
		Open:        parseInt(item.Open),
		High:        parseInt(item.High),
		Low:         parseInt(item.Low),
		Volume:      volume,
		ChangeRate:  parseFloat(item.ChangeRate),
		MarketCap:   parseInt(item.MarketCap),
		TradeAmount: tradeAmount,
	}

	if prevVolume > 0 {
		row.VolumeRatio = round2(float64(volume) / float64(prevVolume))
	}

	if prevTradeAmount > 0 {
		row.TradeAmountRatio = round2(float64(tradeAmount) / float64(prevTradeAmount))
	}

	if listedShares > 0 {
		row.TurnoverRate = round2(float64(volume) / float64(listedShares) * 100)
	}

	return row
}

// GetHistory implements Broker. Returns daily closes, most recent first.
func (b *KISBroker) GetHistory(ctx context.Context, ticker string, periods int) ([]int64, error) {
	if err := b.ensureToken(ctx); err != nil {
		return nil, err
	}

	// Request a wide enough calendar range to cover the trading periods.
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -periods*2)

	var out struct {
		Output []struct {
			Close string `json:"stck_clpr"`
		} `json:"output2"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(kisTrDailyCandles)).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_INPUT_ISCD":         ticker,
			"FID_INPUT_DATE_1":       start.Format("20060102"),
			"FID_INPUT_DATE_2":       end.Format("20060102"),
			"FID_PERIOD_DIV_CODE":    "D",
			"FID_ORG_ADJ_PRC":        "0",
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/quotations/inquire-daily-price")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoryUnavailable, err, "daily history %s", ticker)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeHistoryUnavailable, "daily history %s: %s", ticker, resp.Status())
	}

	closes := make([]int64, 0, periods)

	for _, candle := range out.Output {
		if candle.Close == "" {
			continue
		}

		closes = append(closes, parseInt(candle.Close))
		if len(closes) == periods {
			break
		}
	}

	return closes, nil
}

// GetBalance implements Broker.
func (b *KISBroker) GetBalance(ctx context.Context) (types.AccountBalance, error) {
	if err := b.ensureToken(ctx); err != nil {
		return types.AccountBalance{}, err
	}

	trID := "TTTC8434R"
	if b.cfg.Virtual {
		trID = "VTTC8434R"
	}

	cano, prdtCd := b.accountParts()

	var out struct {
		Positions []struct {
			Ticker       string `json:"pdno"`
			Name         string `json:"prdt_name"`
			Quantity     string `json:"hldg_qty"`
			AvgPrice     string `json:"pchs_avg_pric"`
			CurrentPrice string `json:"prpr"`
			ProfitRate   string `json:"evlu_pfls_rt"`
			ProfitAmount string `json:"evlu_pfls_amt"`
		} `json:"output1"`
		Summary []struct {
			TotalAsset string `json:"tot_evlu_amt"`
			Cash       string `json:"dnca_tot_amt"`
			StockValue string `json:"scts_evlu_amt"`
			ProfitRate string `json:"evlu_pfls_smtl_rt"`
		} `json:"output2"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(trID)).
		SetQueryParams(map[string]string{
			"CANO":                  cano,
			"ACNT_PRDT_CD":          prdtCd,
			"AFHR_FLPR_YN":          "N",
			"INQR_DVSN":             "02",
			"UNPR_DVSN":             "01",
			"FUND_STTL_ICLD_YN":     "N",
			"FNCG_AMT_AUTO_RDPT_YN": "N",
			"PRCS_DVSN":             "01",
			"CTX_AREA_FK100":        "",
			"CTX_AREA_NK100":        "",
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/trading/inquire-balance")
	if err != nil {
		return types.AccountBalance{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "balance inquiry failed", err)
	}

	if resp.IsError() {
		return types.AccountBalance{}, errors.Newf(errors.ErrCodeBrokerRequestFailed, "balance inquiry: %s", resp.Status())
	}

	positions := make([]types.Position, 0, len(out.Positions))

	for _, item := range out.Positions {
		qty := parseInt(item.Quantity)
		if qty <= 0 {
			continue
		}

		positions = append(positions, types.Position{
			Ticker:       item.Ticker,
			Name:         item.Name,
			Quantity:     qty,
			AvgPrice:     parseDecimal(item.AvgPrice),
			CurrentPrice: parseDecimal(item.CurrentPrice),
			ProfitRate:   parseDecimal(item.ProfitRate),
			ProfitAmount: parseDecimal(item.ProfitAmount),
		})
	}

	balance := types.AccountBalance{Positions: positions}
	if len(out.Summary) > 0 {
		s := out.Summary[0]
		balance.TotalAsset = parseDecimal(s.TotalAsset)
		balance.Cash = parseDecimal(s.Cash)
		balance.StockValue = parseDecimal(s.StockValue)
		balance.ProfitRate = parseDecimal(s.ProfitRate)
	}

	return balance, nil
}

// GetMarketIndex implements Broker.
func (b *KISBroker) GetMarketIndex(ctx context.Context, market string) (float64, float64, error) {
	code, ok := kisMarketCodes[market]
	if !ok {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "unknown market %q", market)
	}

	if err := b.ensureToken(ctx); err != nil {
		return 0, 0, err
	}

	var out struct {
		Output struct {
			IndexValue      string `json:"bstp_nmix_prpr"`
			IndexChangeRate string `json:"bstp_nmix_prdy_ctrt"`
		} `json:"output"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(kisTrIndexPrice)).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "U",
			"FID_INPUT_ISCD":         code,
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/quotations/inquire-index-price")
	if err != nil {
		return 0, 0, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "index price %s", market)
	}

	if resp.IsError() {
		return 0, 0, errors.Newf(errors.ErrCodeBrokerRequestFailed, "index price %s: %s", market, resp.Status())
	}

	return parseFloat(out.Output.IndexValue), parseFloat(out.Output.IndexChangeRate), nil
}

// GetInvestorFlows implements Broker. The endpoint returns rows newest first;
// only the latest row is used.
func (b *KISBroker) GetInvestorFlows(ctx context.Context, market string) (int64, int64, int64, error) {
	code, ok := kisMarketCodes[market]
	if !ok {
		return 0, 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "unknown market %q", market)
	}

	if err := b.ensureToken(ctx); err != nil {
		return 0, 0, 0, err
	}

	var out struct {
		Output []struct {
			ForeignNetBuy     string `json:"frgn_ntby_qty"`
			InstitutionNetBuy string `json:"orgn_ntby_qty"`
			IndividualNetBuy  string `json:"prsn_ntby_qty"`
		} `json:"output"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(kisTrInvestorTrend)).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": "V",
			"FID_INPUT_ISCD":         code,
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/quotations/investor-trend-estimate")
	if err != nil {
		return 0, 0, 0, errors.Wrapf(errors.ErrCodeBrokerRequestFailed, err, "investor flows %s", market)
	}

	if resp.IsError() || len(out.Output) == 0 {
		return 0, 0, 0, errors.Newf(errors.ErrCodeBrokerRequestFailed, "investor flows %s: empty response", market)
	}

	latest := out.Output[0]

	return parseInt(latest.ForeignNetBuy), parseInt(latest.InstitutionNetBuy), parseInt(latest.IndividualNetBuy), nil
}

// PlaceOrder implements Broker. A non-"0" return code maps to a rejected
// result, not an error, so the gate can audit it.
func (b *KISBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	if err := b.ensureToken(ctx); err != nil {
		return types.OrderResult{}, err
	}

	trID := b.orderTrID(req.Side)
	cano, prdtCd := b.accountParts()

	// 01 = limit order, 06 = market order.
	ordDvsn := "01"
	price := decimal.Zero

	if req.OrderType == types.OrderTypeMarket {
		ordDvsn = "06"
	} else if req.Price.IsSome() {
		price = req.Price.Unwrap()
	}

	var out struct {
		ReturnCode string `json:"rt_cd"`
		Message    string `json:"msg1"`
		Output     struct {
			OrderID string `json:"ODNO"`
		} `json:"output"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(trID)).
		SetBody(map[string]string{
			"CANO":         cano,
			"ACNT_PRDT_CD": prdtCd,
			"PDNO":         req.Ticker,
			"ORD_DVSN":     ordDvsn,
			"ORD_QTY":      strconv.FormatInt(req.Quantity, 10),
			"ORD_UNPR":     price.String(),
		}).
		SetResult(&out).
		Post("/uapi/domestic-stock/v1/trading/order-cash")
	if err != nil {
		return types.OrderResult{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "order %s %s", req.Side, req.Ticker)
	}

	if resp.IsError() {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeOrderFailed, "order %s %s: %s", req.Side, req.Ticker, resp.Status())
	}

	status := types.OrderStatusSubmitted
	if out.ReturnCode != "0" {
		status = types.OrderStatusRejected
	}

	b.log.Info("kis order placed",
		zap.String("ticker", req.Ticker),
		zap.String("side", string(req.Side)),
		zap.Int64("quantity", req.Quantity),
		zap.String("status", string(status)))

	return types.OrderResult{
		OrderID:  out.Output.OrderID,
		Ticker:   req.Ticker,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    price,
		Status:   status,
		Broker:   b.Name(),
		Message:  out.Message,
	}, nil
}

func (b *KISBroker) orderTrID(side types.OrderSide) string {
	if side == types.OrderSideBuy {
		if b.cfg.Virtual {
			return "VTTC0802U"
		}

		return "TTTC0802U"
	}

	if b.cfg.Virtual {
		return "VTTC0801U"
	}

	return "TTTC0801U"
}

// CancelOrder implements Broker. Cancels the full remaining quantity.
func (b *KISBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if err := b.ensureToken(ctx); err != nil {
		return false, err
	}

	trID := "TTTC0803U"
	if b.cfg.Virtual {
		trID = "VTTC0803U"
	}

	cano, prdtCd := b.accountParts()

	var out struct {
		ReturnCode string `json:"rt_cd"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(trID)).
		SetBody(map[string]string{
			"CANO":               cano,
			"ACNT_PRDT_CD":       prdtCd,
			"KRX_FWDG_ORD_ORGNO": "",
			"ORGN_ODNO":          orderID,
			"ORD_DVSN":           "00",
			"RVSE_CNCL_DVSN_CD":  "02",
			"ORD_QTY":            "0",
			"ORD_UNPR":           "0",
			"QTY_ALL_ORD_YN":     "Y",
		}).
		SetResult(&out).
		Post("/uapi/domestic-stock/v1/trading/order-rvsecncl")
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeOrderFailed, err, "cancel order %s", orderID)
	}

	if resp.IsError() {
		return false, errors.Newf(errors.ErrCodeOrderFailed, "cancel order %s: %s", orderID, resp.Status())
	}

	return out.ReturnCode == "0", nil
}

// GetOrderHistory implements Broker.
func (b *KISBroker) GetOrderHistory(ctx context.Context, date string) ([]types.OrderExecution, error) {
	if err := b.ensureToken(ctx); err != nil {
		return nil, err
	}

	trID := "TTTC8001R"
	if b.cfg.Virtual {
		trID = "VTTC8001R"
	}

	if date == "" {
		date = time.Now().UTC().Format("20060102")
	}

	cano, prdtCd := b.accountParts()

	var out struct {
		Output []struct {
			OrderID  string `json:"odno"`
			Ticker   string `json:"pdno"`
			Name     string `json:"prdt_name"`
			SideName string `json:"sll_buy_dvsn_cd"`
			Quantity string `json:"ord_qty"`
			Price    string `json:"ord_unpr"`
			Status   string `json:"ccld_dvsn_name"`
		} `json:"output1"`
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(b.headers(trID)).
		SetQueryParams(map[string]string{
			"CANO":            cano,
			"ACNT_PRDT_CD":    prdtCd,
			"INQR_STRT_DT":    date,
			"INQR_END_DT":     date,
			"SLL_BUY_DVSN_CD": "00",
			"INQR_DVSN":       "00",
			"CCLD_DVSN":       "00",
			"INQR_DVSN_3":     "00",
			"CTX_AREA_FK100":  "",
			"CTX_AREA_NK100":  "",
		}).
		SetResult(&out).
		Get("/uapi/domestic-stock/v1/trading/inquire-daily-ccld")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "order history inquiry failed", err)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeBrokerRequestFailed, "order history inquiry: %s", resp.Status())
	}

	executions := make([]types.OrderExecution, 0, len(out.Output))

	for _, item := range out.Output {
		// KIS encodes sell as 01, buy as 02.
		side := types.OrderSideBuy
		if item.SideName == "01" {
			side = types.OrderSideSell
		}

		executions = append(executions, types.OrderExecution{
			OrderID:  item.OrderID,
			Ticker:   item.Ticker,
			Name:     item.Name,
			Side:     side,
			Quantity: parseInt(item.Quantity),
			Price:    parseDecimal(item.Price),
			Status:   item.Status,
		})
	}

	return executions, nil
}
