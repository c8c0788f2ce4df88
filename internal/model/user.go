// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IdPが正となる情報を初回ログイン時にusersテーブルへ複製したもの。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はユーザーとIdPアカウントの紐付けを表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はログインセッションを表す。
// リクエストごとにセッションミドルウェアが解決し、コンテキスト経由でハンドラーに渡す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
