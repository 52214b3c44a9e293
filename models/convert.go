// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"time"

	"github.com/danielhkuo/rentradar/docstore"
)

// Now returns the current time in the precision every backend can store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// VoteID is the document id of a voter's vote on a report.
func VoteID(reportID, voterID string) string {
	return reportID + ":" + voterID
}

func CountersFromFields(f docstore.Fields) Counters {
	return Counters{
		Confirmations:      f.Int(VoteConfirm.Field()),
		PossibleFraudVotes: f.Int(VotePossible.Field()),
		FraudVotes:         f.Int(VoteFraud.Field()),
		InactiveVotes:      f.Int(VoteInactive.Field()),
	}
}

func ReportFromDocument(d docstore.Document) Report {
	f := d.Fields
	return Report{
		ID:        d.ID,
		CreatedBy: f.String("createdBy"),
		CreatedAt: f.Time("createdAt"),
		ExpiresAt: f.Time("expiresAt"),
		Location: Location{
			Lat: f.Float("location.lat"),
			Lng: f.Float("location.lng"),
		},
		Price:       f.StringPtr("price"),
		Phone:       f.StringPtr("phone"),
		Description: f.StringPtr("description"),
		ImageURL:    f.StringPtr("imageUrl"),
		Status:      f.String("status"),
		Counters:    CountersFromFields(f),
	}
}

// Fields returns the complete stored form of the report.
func (r Report) Fields() docstore.Fields {
	return docstore.Fields{
		"createdBy":           r.CreatedBy,
		"createdAt":           r.CreatedAt,
		"expiresAt":           r.ExpiresAt,
		"location.lat":        r.Location.Lat,
		"location.lng":        r.Location.Lng,
		"price":               optional(r.Price),
		"phone":               optional(r.Phone),
		"description":         optional(r.Description),
		"imageUrl":            optional(r.ImageURL),
		"status":              r.Status,
		VoteConfirm.Field():   r.Counters.Confirmations,
		VotePossible.Field():  r.Counters.PossibleFraudVotes,
		VoteFraud.Field():     r.Counters.FraudVotes,
		VoteInactive.Field():  r.Counters.InactiveVotes,
	}
}

func VoteFromDocument(d docstore.Document) Vote {
	f := d.Fields
	return Vote{
		ReportID:  f.String("reportId"),
		VoterID:   f.String("voterId"),
		Category:  VoteCategory(f.String("voteType")),
		UpdatedAt: f.Time("updatedAt"),
		Applied:   f.Bool("applied"),
	}
}

func (v Vote) Fields() docstore.Fields {
	return docstore.Fields{
		"reportId":  v.ReportID,
		"voterId":   v.VoterID,
		"voteType":  string(v.Category),
		"updatedAt": v.UpdatedAt,
		"applied":   v.Applied,
	}
}

func FeedbackFromDocument(d docstore.Document) Feedback {
	f := d.Fields
	return Feedback{
		ID:        d.ID,
		Message:   f.String("message"),
		Type:      f.String("type"),
		Resolved:  f.Bool("resolved"),
		CreatedBy: f.StringPtr("createdBy"),
		CreatedAt: f.Time("createdAt"),
	}
}

func (fb Feedback) Fields() docstore.Fields {
	return docstore.Fields{
		"message":   fb.Message,
		"type":      fb.Type,
		"resolved":  fb.Resolved,
		"createdBy": optional(fb.CreatedBy),
		"createdAt": fb.CreatedAt,
	}
}

func ProfileFromDocument(d docstore.Document) Profile {
	f := d.Fields
	return Profile{
		ID:                 d.ID,
		DisplayName:        f.String("displayName"),
		Email:              f.String("email"),
		ReputationScore:    f.Int("reputationScore"),
		ContributionsCount: f.Int("contributionsCount"),
		Status:             f.String("status"),
		CreatedAt:          f.Time("createdAt"),
		LastLogin:          f.TimePtr("lastLogin"),
	}
}

func (p Profile) Fields() docstore.Fields {
	f := docstore.Fields{
		"displayName":        p.DisplayName,
		"email":              p.Email,
		"reputationScore":    p.ReputationScore,
		"contributionsCount": p.ContributionsCount,
		"status":             p.Status,
		"createdAt":          p.CreatedAt,
		"lastLogin":          nil,
	}
	if p.LastLogin != nil {
		f["lastLogin"] = *p.LastLogin
	}
	return f
}

// optional stores a nil pointer as null.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
