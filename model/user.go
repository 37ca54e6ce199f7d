package model

import "database/sql"

type Role struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type User struct {
	ID        int64        `db:"id"`
	Username  string       `db:"username"`
	Email     string       `db:"email"`
	RoleID    int64        `db:"role_id"`
	CreatedAt sql.NullTime `db:"created_at"`
}
