package lobbyhandler

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListSessionsQuery struct {
	GameType string `form:"gameType"         binding:"omitempty,oneof=standard big"`
	Limit    int    `form:"limit,default=50" binding:"gte=0,lte=500"`
	Offset   int    `form:"offset,default=0" binding:"gte=0"`
}
