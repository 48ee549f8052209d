// package models defines the data model for the music analytics service
package models
