package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warships-rating/internal/config"
	"warships-rating/internal/constants"
	"warships-rating/internal/domain"
	"warships-rating/internal/rating"
	"warships-rating/internal/stats"

	"github.com/valyala/fasthttp"
)

// regionHosts maps a region code to its upstream API host.
var regionHosts = map[string]string{
	"na":   "https://api.worldofwarships.com",
	"eu":   "https://api.worldofwarships.eu",
	"asia": "https://api.worldofwarships.asia",
	"ru":   "https://api.worldofwarships.ru",
}

// Client talks to the game-data API. All fetch failures come back as one
// of the domain sentinel errors, wrapped with the upstream detail.
type Client struct {
	appID   string
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		appID:   cfg.AppID,
		baseURL: cfg.BaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) host(region string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if h, ok := regionHosts[strings.ToLower(region)]; ok {
		return h
	}
	return regionHosts["na"]
}

type envelope[T any] struct {
	Status string    `json:"status"`
	Error  *apiError `json:"error"`
	Data   T         `json:"data"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

type accountInfoData struct {
	Nickname      string `json:"nickname"`
	HiddenProfile bool   `json:"hidden_profile"`
	ClanTag       string `json:"clan_tag"`
	Statistics    struct {
		Pvp stats.Sample `json:"pvp"`
	} `json:"statistics"`
}

// PlayerSummary fetches identity and all-time pvp counters for one
// account. A missing entry in the response map means the account does not
// exist.
func (c *Client) PlayerSummary(ctx context.Context, region string, accountID int64) (*domain.PlayerSummary, error) {
	url := fmt.Sprintf("%s/wows/account/info/?application_id=%s&account_id=%d&extra=statistics.pvp", c.host(region), c.appID, accountID)
	data, err := doRequest[map[string]*accountInfoData](ctx, c, url)
	if err != nil {
		return nil, err
	}
	info := (*data)[strconv.FormatInt(accountID, 10)]
	if info == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	return &domain.PlayerSummary{
		AccountID: accountID,
		Nickname:  info.Nickname,
		ClanTag:   info.ClanTag,
		Hidden:    info.HiddenProfile,
		AllTime:   info.Statistics.Pvp,
	}, nil
}

type shipStatsEntry struct {
	ShipID int64        `json:"ship_id"`
	Pvp    stats.Sample `json:"pvp"`
}

// PlayerShips fetches per-ship pvp counters. Hidden or unknown accounts
// come back empty rather than as an error; callers gate on the summary.
func (c *Client) PlayerShips(ctx context.Context, region string, accountID int64) (map[int64]stats.Sample, error) {
	url := fmt.Sprintf("%s/wows/ships/stats/?application_id=%s&account_id=%d", c.host(region), c.appID, accountID)
	data, err := doRequest[map[string][]shipStatsEntry](ctx, c, url)
	if err != nil {
		return nil, err
	}
	entries := (*data)[strconv.FormatInt(accountID, 10)]
	out := make(map[int64]stats.Sample, len(entries))
	for _, e := range entries {
		out[e.ShipID] = e.Pvp
	}
	return out, nil
}

type dailyEntry struct {
	Pvp map[string]stats.Sample `json:"pvp"`
}

// PlayerDaily fetches all-time snapshots as they stood on each of the
// given dates (formatted YYYYMMDD). Dates the server has no snapshot for
// are absent from the result.
func (c *Client) PlayerDaily(ctx context.Context, region string, accountID int64, dates []string) (map[string]stats.Sample, error) {
	url := fmt.Sprintf("%s/wows/account/statsbydate/?application_id=%s&account_id=%d&dates=%s", c.host(region), c.appID, accountID, strings.Join(dates, ","))
	data, err := doRequest[map[string]*dailyEntry](ctx, c, url)
	if err != nil {
		return nil, err
	}
	entry := (*data)[strconv.FormatInt(accountID, 10)]
	if entry == nil {
		return map[string]stats.Sample{}, nil
	}
	return entry.Pvp, nil
}

type clanInfoData struct {
	Name        string  `json:"name"`
	Tag         string  `json:"tag"`
	Description string  `json:"description"`
	MembersIDs  []int64 `json:"members_ids"`
}

func (c *Client) ClanInfo(ctx context.Context, region string, clanID int64) (*domain.ClanInfo, error) {
	url := fmt.Sprintf("%s/wows/clans/info/?application_id=%s&clan_id=%d", c.host(region), c.appID, clanID)
	data, err := doRequest[map[string]*clanInfoData](ctx, c, url)
	if err != nil {
		return nil, err
	}
	info := (*data)[strconv.FormatInt(clanID, 10)]
	if info == nil {
		return nil, fmt.Errorf("clan %d: %w", clanID, domain.ErrNotFound)
	}
	return &domain.ClanInfo{
		ClanID:      clanID,
		Name:        info.Name,
		Tag:         info.Tag,
		Description: info.Description,
		MemberIDs:   info.MembersIDs,
	}, nil
}

type expectedData struct {
	Ships        map[string]stats.Sample `json:"ships"`
	Coefficients rating.Coefficients     `json:"coefficients"`
}

// ExpectedValues fetches the server-wide per-battle expectation table and
// the coefficient set for a region.
func (c *Client) ExpectedValues(ctx context.Context, region string) (map[int64]stats.Sample, rating.Coefficients, error) {
	url := fmt.Sprintf("%s/wows/ratings/expected/?application_id=%s", c.host(region), c.appID)
	data, err := doRequest[expectedData](ctx, c, url)
	if err != nil {
		return nil, rating.Coefficients{}, err
	}
	out := make(map[int64]stats.Sample, len(data.Ships))
	for idStr, sample := range data.Ships {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		out[id] = sample
	}
	return out, data.Coefficients, nil
}

type shipEncyclopediaEntry struct {
	Tier float64 `json:"tier"`
}

// ShipTiers fetches the ship id to tier table for a region.
func (c *Client) ShipTiers(ctx context.Context, region string) (map[int64]float64, error) {
	url := fmt.Sprintf("%s/wows/encyclopedia/ships/?application_id=%s&fields=tier", c.host(region), c.appID)
	data, err := doRequest[map[string]shipEncyclopediaEntry](ctx, c, url)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(*data))
	for idStr, e := range *data {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		out[id] = e.Tier
	}
	return out, nil
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", domain.ErrNotFound, status)
	case status != fasthttp.StatusOK:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, status)
	}

	var result envelope[T]
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrUpstreamUnavailable, err)
	}
	if result.Status != "ok" {
		if result.Error != nil && result.Error.Code == 404 {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, result.Error.Message)
		}
		msg := "unknown error"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, msg)
	}
	return &result.Data, nil
}
