// signer строит подписанные параметры запроса к поисковому API маркетплейса.
//
// Подпись: md5("<token>&<t>&<appKey>&<data>") в нижнем регистре hex,
// где data — компактный JSON тела запроса с фиксированным порядком полей.
package signer

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
)

// Константы протокола mtop.
const (
	DefaultAppKey = "34839810"
	APIName       = "mtop.taobao.idlemtopsearch.pc.search"
	JSVersion     = "2.7.2"
	APIVersion    = "1.0"
)

// ErrInvalidSession — в наборе cookie нет разбираемого поля _m_h5_tk.
var ErrInvalidSession = models.ErrInvalidSession

// searchBody — тело поискового запроса. Порядок полей значим: он попадает в подпись.
type searchBody struct {
	PageNumber        int               `json:"pageNumber"`
	Keyword           string            `json:"keyword"`
	FromFilter        bool              `json:"fromFilter"`
	RowsPerPage       int               `json:"rowsPerPage"`
	SortValue         string            `json:"sortValue"`
	SortField         string            `json:"sortField"`
	CustomDistance    string            `json:"customDistance"`
	GPS               string            `json:"gps"`
	PropValueStr      map[string]string `json:"propValueStr"`
	CustomGPS         string            `json:"customGps"`
	SearchReqFromPage string            `json:"searchReqFromPage"`
	ExtraFilterValue  string            `json:"extraFilterValue"`
	UserPositionJSON  string            `json:"userPositionJson"`
}

// SignedRequest — готовые к отправке параметры и тело.
type SignedRequest struct {
	// Params — query-параметры запроса (включая data и sign).
	Params url.Values
	// Data — сериализованное тело, оно же поле формы "data".
	Data string
	// Sign — подпись в нижнем регистре hex.
	Sign string
	// Timestamp — метка времени запроса в миллисекундах.
	Timestamp int64
}

// Signer подписывает запросы заданным appKey.
type Signer struct {
	appKey string
}

// New создаёт Signer; пустой appKey заменяется DefaultAppKey.
func New(appKey string) *Signer {
	if appKey == "" {
		appKey = DefaultAppKey
	}
	return &Signer{appKey: appKey}
}

// Sign строит подписанный запрос для страницы page запроса query.
// При отсутствии или порче _m_h5_tk возвращает ErrInvalidSession и ничего не подписывает.
func (s *Signer) Sign(query string, page, rows int, token models.SessionToken, nowMillis int64) (SignedRequest, error) {
	const op = "signer/Sign"

	value, _, ok := token.Composite()
	if !ok {
		return SignedRequest{}, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	data, err := Body(query, page, rows)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	ts := strconv.FormatInt(nowMillis, 10)
	sign := Digest(value, ts, s.appKey, data)

	params := url.Values{}
	params.Set("jsv", JSVersion)
	params.Set("appKey", s.appKey)
	params.Set("t", ts)
	params.Set("sign", sign)
	params.Set("v", APIVersion)
	params.Set("type", "originaljson")
	params.Set("accountSite", "xianyu")
	params.Set("dataType", "json")
	params.Set("timeout", "20000")
	params.Set("api", APIName)
	params.Set("sessionOption", "AutoLoginOnly")
	params.Set("spm_cnt", "a21ybx.search.0.0")
	params.Set("spm_pre", "a21ybx.search.searchInput.0")
	params.Set("data", data)

	return SignedRequest{Params: params, Data: data, Sign: sign, Timestamp: nowMillis}, nil
}

// Body сериализует тело запроса компактно, без HTML-экранирования.
func Body(query string, page, rows int) (string, error) {
	body := searchBody{
		PageNumber:        page,
		Keyword:           query,
		FromFilter:        false,
		RowsPerPage:       rows,
		SortValue:         "new",
		PropValueStr:      map[string]string{},
		SearchReqFromPage: "pcSearch",
		ExtraFilterValue:  "{}",
		UserPositionJSON:  "{}",
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Digest считает md5 от "token&t&appKey&data".
func Digest(token, ts, appKey, data string) string {
	sum := md5.Sum([]byte(token + "&" + ts + "&" + appKey + "&" + data))
	return hex.EncodeToString(sum[:])
}
