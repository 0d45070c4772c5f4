package repos

import (
	"github.com/tauraamui/scopeview/pkg/database/dbconn"
	"github.com/tauraamui/scopeview/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type SessionRepository struct {
	DB dbconn.GormWrapper
}

func (r *SessionRepository) Create(session *models.Session) error {
	return r.DB.Create(session).Error()
}

func (r *SessionRepository) Save(session *models.Session) error {
	return r.DB.Save(session).Error()
}

func (r *SessionRepository) FindByUUID(uuid string) (models.Session, error) {
	session := models.Session{}
	if err := r.DB.Where("uuid = ?", uuid).First(&session).Error(); err != nil {
		return session, xerror.Errorf("session of uuid %s not found", uuid)
	}

	return session, nil
}

// Recent returns up to n sessions, newest first.
func (r *SessionRepository) Recent(n int) ([]models.Session, error) {
	if n < 1 {
		return nil, xerror.Errorf("invalid session count: %d", n)
	}
	sessions := []models.Session{}
	if err := r.DB.Order("id desc").Limit(n).Find(&sessions).Error(); err != nil {
		return nil, xerror.Errorf("unable to list sessions: %w", err)
	}
	return sessions, nil
}
