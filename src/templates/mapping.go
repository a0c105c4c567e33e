package templates

import "git.carhub.se/carhub/carhub/src/models"

func SessionUserToTemplate(u *models.SessionUser) *User {
	if u == nil {
		return nil
	}
	return &User{
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	}
}
