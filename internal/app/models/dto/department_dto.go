package dto

// DepartmentRequest represents department creation and update data
type DepartmentRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"Computer Science"`
	Code string `json:"code" binding:"required,max=10" example:"CS"`
}
