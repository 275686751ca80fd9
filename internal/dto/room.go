package dto

// CreateRoomRequest registers a teaching room.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
	RoomType string `json:"roomType"`
}
