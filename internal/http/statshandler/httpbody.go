package statshandler

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
} // @name HealthResponse

type StatsResponse struct {
	Rooms     int   `json:"rooms"      example:"2"`
	Clients   int   `json:"clients"    example:"11"`
	Connected int   `json:"connected"  example:"12"`
	RoomSizes []int `json:"room_sizes" example:"8,3"`
} // @name StatsResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
