// Package feast 把 Feast Feature Store 适配为 core.PreferenceLookup。
//
// 用户偏好作为在线特征存放（类目/品牌/风格为字符串列表，价格区间为双精度），
// 推荐核心通过统一的 PreferenceLookup 接口读取，对 Feast 无感知。
package feast

import (
	"context"
	"fmt"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/vibeshop/recommend/core"
)

// 默认特征命名：feature view "shopper" 下的偏好字段。
var defaultFeatures = []string{
	"shopper:categories",
	"shopper:brands",
	"shopper:styles",
	"shopper:price_min",
	"shopper:price_max",
}

const defaultEntityKey = "user_id"

// PreferenceProvider 是基于 Feast 在线特征的偏好查询实现。
type PreferenceProvider struct {
	client    *feastsdk.GrpcClient
	project   string
	entityKey string
	features  []string
	timeout   time.Duration
}

// ProviderOption 配置 PreferenceProvider。
type ProviderOption func(*PreferenceProvider)

// WithEntityKey 覆盖实体 key（默认 "user_id"）。
func WithEntityKey(key string) ProviderOption {
	return func(p *PreferenceProvider) { p.entityKey = key }
}

// WithFeatures 覆盖读取的特征列表。
func WithFeatures(features []string) ProviderOption {
	return func(p *PreferenceProvider) { p.features = features }
}

// WithTimeout 覆盖单次查询超时（默认 3s）。
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *PreferenceProvider) { p.timeout = d }
}

// NewPreferenceProvider 连接 Feast Feature Server 并构造偏好查询器。
func NewPreferenceProvider(host string, port int, project string, opts ...ProviderOption) (*PreferenceProvider, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast %s:%d: %w", host, port, err)
	}

	p := &PreferenceProvider{
		client:    client,
		project:   project,
		entityKey: defaultEntityKey,
		features:  defaultFeatures,
		timeout:   3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Get 读取用户偏好；特征全部缺失视为用户不存在，返回 NOT_FOUND。
func (p *PreferenceProvider) Get(ctx context.Context, userID string) (*core.UserPreferences, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &feastsdk.OnlineFeaturesRequest{
		Features: p.features,
		Entities: []feastsdk.Row{{p.entityKey: feastsdk.StrVal(userID)}},
		Project:  p.project,
	}
	resp, err := p.client.GetOnlineFeatures(reqCtx, req)
	if err != nil {
		return nil, core.NewDomainError(core.ModulePreference, core.ErrorCodeUnavailable,
			"preference: feast lookup failed: "+err.Error())
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, core.NewDomainError(core.ModulePreference, core.ErrorCodeNotFound,
			"preference: user not found: "+userID)
	}
	row := rows[0]

	prefs := &core.UserPreferences{
		UserID:     userID,
		Categories: stringList(row["shopper:categories"]),
		Brands:     stringList(row["shopper:brands"]),
		Styles:     stringList(row["shopper:styles"]),
	}
	prefs.PriceRange.Min = doubleVal(row["shopper:price_min"])
	prefs.PriceRange.Max = doubleVal(row["shopper:price_max"])

	if prefs.Empty() && allAbsent(row, p.features) {
		return nil, core.NewDomainError(core.ModulePreference, core.ErrorCodeNotFound,
			"preference: user not found: "+userID)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return prefs, nil
}

func stringList(v *feasttypes.Value) []string {
	if v == nil {
		return nil
	}
	if list := v.GetStringListVal(); list != nil {
		return list.GetVal()
	}
	if s := v.GetStringVal(); s != "" {
		return []string{s}
	}
	return nil
}

func doubleVal(v *feasttypes.Value) float64 {
	if v == nil {
		return 0
	}
	return v.GetDoubleVal()
}

func allAbsent(row feastsdk.Row, features []string) bool {
	for _, f := range features {
		if v, ok := row[f]; ok && v != nil && v.GetVal() != nil {
			return false
		}
	}
	return true
}

// 确保 PreferenceProvider 实现了 PreferenceLookup 接口
var _ core.PreferenceLookup = (*PreferenceProvider)(nil)
