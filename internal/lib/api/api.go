package api

const (
	HeaderAccessToken  = "X-ACCESS-TOKEN"
	HeaderRefreshToken = "X-REFRESH-TOKEN"
)
