package models

import (
	"fmt"
	"strings"
	"time"
)

// FlexibleBool - гибкий boolean тип, поддерживающий строки и числа
type FlexibleBool bool

// UnmarshalJSON поддерживает парсинг boolean из строки, числа и boolean
func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	// Убираем кавычки
	str := string(data)
	str = strings.Trim(str, `"`)

	switch strings.ToLower(str) {
	case "true", "1", "yes", "on":
		*fb = true
	case "false", "0", "no", "off":
		*fb = false
	default:
		return fmt.Errorf("invalid boolean value: %s", str)
	}
	return nil
}

// Bool возвращает bool значение
func (fb FlexibleBool) Bool() bool {
	return bool(fb)
}

// RegistrationData - свободные поля, которые покупатель передает при регистрации
type RegistrationData struct {
	Pickup  *string `json:"pickup,omitempty"`
	Medical *string `json:"medical,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// RegisterBundleRequest - модель для покупки пакета событий
type RegisterBundleRequest struct {
	Token            string           `json:"token"`
	BundleID         int64            `json:"bundleId"`
	RegistrationData RegistrationData `json:"registrationData"`
}

// RegisterBundleResponse - модель ответа при покупке пакета
type RegisterBundleResponse struct {
	BundleRegistrationID int64          `json:"bundleRegistrationId"`
	EventRegistrations   []EventOutcome `json:"eventRegistrations"`
	SkippedEvents        []SkippedEvent `json:"skippedEvents"`
	Status               string         `json:"status"`
	Message              string         `json:"message"`
	ClientSecret         *string        `json:"clientSecret,omitempty"`
}

// RegisterEventRequest - модель для регистрации на одиночное событие
type RegisterEventRequest struct {
	RegistrationData RegistrationData `json:"registrationData"`
}

// RegisterEventResponse - модель ответа при регистрации на событие
type RegisterEventResponse struct {
	RegistrationID int64  `json:"registrationId"`
	Status         string `json:"status"`
}

// CreateEventRequest - модель для создания события
type CreateEventRequest struct {
	Title            string       `json:"title" binding:"required"`
	Description      *string      `json:"description,omitempty"`
	StartsAt         *time.Time   `json:"starts_at,omitempty"`
	Location         *string      `json:"location,omitempty"`
	Capacity         int          `json:"capacity"`
	PriceAgorot      int64        `json:"price_agorot"`
	Published        FlexibleBool `json:"published,omitempty"`
	Status           string       `json:"status,omitempty"`
	Trainers         []string     `json:"trainers,omitempty"`
	VisibilityGroups []string     `json:"visibility_groups,omitempty"`
}

// CreateEventResponse - модель ответа при создании события
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem - элемент списка событий
type ListEventsResponseItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	StartsAt    *time.Time `json:"starts_at"`
	Location    *string    `json:"location"`
	PriceAgorot int64      `json:"price_agorot"`
	Status      string     `json:"status"`
}

// ListEventsResponse - список событий
type ListEventsResponse []ListEventsResponseItem

// CreateBundleRequest - модель для создания пакета событий
type CreateBundleRequest struct {
	Title               string       `json:"title" binding:"required"`
	Description         *string      `json:"description,omitempty"`
	PriceAgorot         int64        `json:"price_agorot"`
	ValidUntil          *time.Time   `json:"valid_until,omitempty"`
	Published           FlexibleBool `json:"published,omitempty"`
	Active              FlexibleBool `json:"active,omitempty"`
	EventIDs            []int64      `json:"event_ids" binding:"required"`
	ReplacementEventIDs []int64      `json:"replacement_event_ids,omitempty"`
}

// CreateBundleResponse - модель ответа при создании пакета
type CreateBundleResponse struct {
	ID int64 `json:"id"`
}

// BootstrapProfileRequest - модель для создания профиля при первом входе
type BootstrapProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateRoleRequest - модель для смены роли пользователя администратором
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateGroupsRequest - модель для замены групп пользователя администратором
type UpdateGroupsRequest struct {
	Groups []string `json:"groups"`
}

// CreateAnnouncementRequest - модель для создания объявления
type CreateAnnouncementRequest struct {
	Title        string       `json:"title" binding:"required"`
	Content      string       `json:"content" binding:"required"`
	TargetGroups []string     `json:"target_groups"`
	Type         string       `json:"type,omitempty"`
	Active       FlexibleBool `json:"active,omitempty"`
}

// WhatsAppGroupRequest - модель для создания/обновления ссылки на группу WhatsApp
type WhatsAppGroupRequest struct {
	GroupKey string       `json:"group_key" binding:"required"`
	Name     string       `json:"name" binding:"required"`
	ChatURL  string       `json:"chat_url" binding:"required"`
	Active   FlexibleBool `json:"active,omitempty"`
}

// MediaAssetRequest - модель для создания медиа-ссылки
type MediaAssetRequest struct {
	Title    string `json:"title" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Kind     string `json:"kind,omitempty"`
	Position int    `json:"position,omitempty"`
}

// MemorialItemRequest - модель для создания записи мемориального раздела
type MemorialItemRequest struct {
	Name      string       `json:"name" binding:"required"`
	Years     *string      `json:"years,omitempty"`
	Story     *string      `json:"story,omitempty"`
	ImageURL  *string      `json:"image_url,omitempty"`
	Published FlexibleBool `json:"published,omitempty"`
	Position  int          `json:"position,omitempty"`
}

// TestEmailRequest - модель для тестовой отправки письма из админки
type TestEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name,omitempty"`
}

// AnalyticsResponse - модель ответа аналитики для события
type AnalyticsResponse struct {
	EventID            int64 `json:"event_id"`
	Capacity           int   `json:"capacity"`
	ActiveCount        int   `json:"active_count"`
	PaidCount          int   `json:"paid_count"`
	CancelledCount     int   `json:"cancelled_count"`
	FreeSpots          int   `json:"free_spots"`
	TotalRevenueAgorot int64 `json:"total_revenue_agorot"`
}
