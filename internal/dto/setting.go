package dto

// SettingItem represents a setting exposed via API.
type SettingItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// UpdateSettingRequest describes payload for updating a single setting.
type UpdateSettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// BulkUpdateSettingsRequest holds multiple update requests.
type BulkUpdateSettingsRequest struct {
	Items []UpdateSettingRequest `json:"items" validate:"required,min=1,dive"`
}
