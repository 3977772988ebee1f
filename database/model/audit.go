package model

import "time"

// AuditLog records one admin mutation.
type AuditLog struct {
	Id         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserId     int       `json:"userId" gorm:"index"`
	Email      string    `json:"email"`
	Action     string    `json:"action" gorm:"index"`
	Resource   string    `json:"resource" gorm:"index"`
	ResourceId int       `json:"resourceId"`
	RequestId  string    `json:"requestId"`
	Ip         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Details    string    `json:"details" gorm:"type:text"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}
