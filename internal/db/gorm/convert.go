package gorm

import (
	"github.com/goccy/go-json"

	"github.com/thebtf/sitelog/pkg/models"
)

func toModelProject(p *Project) *models.Project {
	if p == nil {
		return nil
	}
	return &models.Project{
		ID:        p.ID,
		Name:      p.Name,
		Location:  stringPtr(p.Location),
		Client:    stringPtr(p.Client),
		CreatedAt: p.CreatedAt,
	}
}

func toModelSubcontractor(s *Subcontractor) models.Subcontractor {
	return models.Subcontractor{ID: s.ID, Name: s.Name}
}

func toModelCrewMember(m *CrewMember) models.CrewMember {
	out := models.CrewMember{
		ID:     m.ID,
		CrewID: m.CrewID,
		Name:   m.Name,
		Role:   stringPtr(m.Role),
		Phone:  stringPtr(m.Phone),
		Email:  stringPtr(m.Email),
		Notes:  stringPtr(m.Notes),
	}
	if m.HourlyRate.Valid {
		rate := m.HourlyRate.Float64
		out.HourlyRate = &rate
	}
	return out
}

func toModelCrew(c *Crew) models.Crew {
	out := models.Crew{ID: c.ID, Name: c.Name, Members: []models.CrewMember{}}
	for i := range c.Members {
		out.Members = append(out.Members, toModelCrewMember(&c.Members[i]))
	}
	return out
}

func toModelDailyLog(l *DailyLog) *models.DailyLog {
	out := &models.DailyLog{
		ID:                 l.ID,
		Date:               l.Date,
		ProjectID:          l.ProjectID,
		SuperintendentName: l.SuperintendentName,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
		Project:            toModelProject(l.Project),
		Sections:           make([]models.LogSection, 0, len(l.Sections)),
		Crews:              make([]models.Crew, 0, len(l.Crews)),
		Subcontractors:     make([]models.Subcontractor, 0, len(l.Subcontractors)),
	}
	for _, s := range l.Sections {
		out.Sections = append(out.Sections, models.LogSection{
			ID:          s.ID,
			LogID:       s.LogID,
			SectionType: s.SectionType,
			Content:     s.Content,
			OrderNum:    s.OrderNum,
		})
	}
	for i := range l.Crews {
		out.Crews = append(out.Crews, toModelCrew(&l.Crews[i]))
	}
	for i := range l.Subcontractors {
		out.Subcontractors = append(out.Subcontractors, toModelSubcontractor(&l.Subcontractors[i]))
	}
	return out
}

func toModelActionItemNote(n *ActionItemNote) models.ActionItemNote {
	return models.ActionItemNote{
		ID:           n.ID,
		ActionItemID: n.ActionItemID,
		Note:         n.Note,
		CreatedBy:    n.CreatedBy,
		CreatedAt:    n.CreatedAt,
	}
}

func toModelActionItem(a *ActionItem) *models.ActionItem {
	out := &models.ActionItem{
		ID:            a.ID,
		Title:         a.Title,
		Description:   stringPtr(a.Description),
		Status:        a.Status,
		Priority:      a.Priority,
		DueDate:       a.DueDate,
		AssignedTo:    stringPtr(a.AssignedTo),
		SourceType:    a.SourceType,
		SourceContent: stringPtr(a.SourceContent),
		ProjectID:     a.ProjectID,
		LogID:         a.LogID,
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		CompletedAt:   a.CompletedAt,
		Project:       toModelProject(a.Project),
	}
	if a.Log != nil {
		out.Log = toModelDailyLog(a.Log)
	}
	if a.Notes != nil {
		out.Notes = make([]models.ActionItemNote, 0, len(a.Notes))
		for i := range a.Notes {
			out.Notes = append(out.Notes, toModelActionItemNote(&a.Notes[i]))
		}
	}
	return out
}

func toModelConversation(c *Conversation) *models.Conversation {
	return &models.Conversation{
		ID:        c.ID,
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Title:     c.Title,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toModelMessage(m *ConversationMessage) models.ConversationMessage {
	out := models.ConversationMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		ModelUsed:      stringPtr(m.ModelUsed),
		CreatedAt:      m.CreatedAt,
	}
	if m.ResponseTimeMs.Valid {
		v := m.ResponseTimeMs.Int64
		out.ResponseTimeMs = &v
	}
	if m.TokenCount.Valid {
		v := int(m.TokenCount.Int64)
		out.TokenCount = &v
	}
	if len(m.Metadata) > 0 {
		var meta models.MessageMetadata
		if err := json.Unmarshal(m.Metadata, &meta); err == nil {
			out.Metadata = &meta
		}
	}
	return out
}
