package server

import (
	"ticktock/internal/domain"
)

// Request payloads

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type TimesheetRequest struct {
	WeekNumber int          `json:"weekNumber"`
	WeekStart  string       `json:"weekStart" format:"date"`
	Days       []domain.Day `json:"days"`
}

type FlaggedTimesheetRequest struct {
	WeekNumber int    `json:"weekNumber"`
	Date       string `json:"date" format:"date"`
	Status     string `json:"status" enum:"Pending,Submitted,Approved"`
}

// Response payloads

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

func entryFromRequest(req TimesheetRequest) domain.Entry {
	return domain.Entry{
		WeekNumber: req.WeekNumber,
		WeekStart:  req.WeekStart,
		Days:       req.Days,
	}
}

func flaggedFromRequest(req FlaggedTimesheetRequest) domain.FlaggedEntry {
	return domain.FlaggedEntry{
		WeekNumber: req.WeekNumber,
		Date:       req.Date,
		Status:     domain.FlagStatus(req.Status),
	}
}
