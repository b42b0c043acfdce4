package api

// 终态状态码：invalid_ip / not_mesh_ip 属于客户端错误，router_unreachable 属于上游依赖错误；
// 三者对当次查询都是终态，核心不做重试
const (
	StatusOK                = "ok"
	StatusInvalidIP         = "invalid_ip"
	StatusNotMeshIP         = "not_mesh_ip"
	StatusRouterUnreachable = "router_unreachable"
)

// LookupResult：对外响应结构，也是客户端缓存的持久化形态
// 约束：所有键始终存在，未知值为显式 null；调用方只能以 null 判断缺失，
// 不得依赖键是否出现
type LookupResult struct {
	Status         string   `json:"status"`
	Error          *string  `json:"error"`
	IP             *string  `json:"ip"`
	Hostname       *string  `json:"hostname"`
	RouterIP       *string  `json:"router_ip"`
	RouterHostname *string  `json:"router_hostname"`
	NetmaskCIDR    *int     `json:"netmask_cidr"`
	Netmask        *string  `json:"netmask"`
	Node           *string  `json:"node"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	Gridsquare     *string  `json:"gridsquare"`
	Country        *string  `json:"country"`
	State          *string  `json:"state"`
	StateCode      *string  `json:"state_code"`
	City           *string  `json:"city"`
	County         *string  `json:"county"`
}
