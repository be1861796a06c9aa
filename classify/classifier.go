// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package classify maps raw audio/device/transport failures onto a fixed,
// localized taxonomy. The UI shows exactly one sentence per failure and
// lets the user retry by re-invoking the operation.
package classify

import "strings"

type Kind string

const (
	PermissionDenied    Kind = "permission_denied"
	DeviceNotFound      Kind = "device_not_found"
	NotSupported        Kind = "not_supported"
	NetworkError        Kind = "network_error"
	TranscriptionFailed Kind = "transcription_failed"
	AiServiceError      Kind = "ai_service_error"
	DurationExceeded    Kind = "duration_exceeded"
	RecordingFailed     Kind = "recording_failed"
	PlaybackFailed      Kind = "playback_failed"
	Generic             Kind = "generic"
)

type Language string

const (
	French  Language = "fr"
	English Language = "en"
	German  Language = "de"
)

// Classified is the user-facing form of a raw failure.
type Classified struct {
	Kind    Kind
	Message string
}

var messages = map[Kind]map[Language]string{
	PermissionDenied: {
		French:  "L'accès au microphone a été refusé. Autorisez le microphone dans les réglages de votre navigateur.",
		English: "Microphone access was denied. Please allow microphone access in your browser settings.",
		German:  "Der Zugriff auf das Mikrofon wurde verweigert. Bitte erlauben Sie den Mikrofonzugriff in Ihren Browser-Einstellungen.",
	},
	DeviceNotFound: {
		French:  "Aucun microphone n'a été détecté. Vérifiez qu'un microphone est bien branché.",
		English: "No microphone was detected. Please check that a microphone is connected.",
		German:  "Es wurde kein Mikrofon erkannt. Bitte prüfen Sie, ob ein Mikrofon angeschlossen ist.",
	},
	NotSupported: {
		French:  "L'enregistrement audio n'est pas pris en charge sur cet appareil ou ce navigateur.",
		English: "Audio recording is not supported on this device or browser.",
		German:  "Audioaufnahmen werden auf diesem Gerät oder Browser nicht unterstützt.",
	},
	NetworkError: {
		French:  "Problème de connexion. Vérifiez votre connexion internet et réessayez.",
		English: "Connection problem. Please check your internet connection and try again.",
		German:  "Verbindungsproblem. Bitte überprüfen Sie Ihre Internetverbindung und versuchen Sie es erneut.",
	},
	TranscriptionFailed: {
		French:  "Votre message audio n'a pas pu être compris. Réessayez en parlant plus distinctement.",
		English: "Your voice message could not be understood. Please try again and speak clearly.",
		German:  "Ihre Sprachnachricht konnte nicht verstanden werden. Bitte sprechen Sie deutlicher und versuchen Sie es erneut.",
	},
	AiServiceError: {
		French:  "L'assistant est momentanément indisponible. Réessayez dans quelques instants.",
		English: "The assistant is temporarily unavailable. Please try again in a moment.",
		German:  "Der Assistent ist vorübergehend nicht verfügbar. Bitte versuchen Sie es gleich noch einmal.",
	},
	DurationExceeded: {
		French:  "Durée maximale d'enregistrement atteinte. Votre message a été envoyé.",
		English: "Maximum recording duration reached. Your message has been sent.",
		German:  "Maximale Aufnahmedauer erreicht. Ihre Nachricht wurde gesendet.",
	},
	RecordingFailed: {
		French:  "L'enregistrement a échoué. Veuillez réessayer.",
		English: "Recording failed. Please try again.",
		German:  "Die Aufnahme ist fehlgeschlagen. Bitte versuchen Sie es erneut.",
	},
	PlaybackFailed: {
		French:  "La lecture audio a échoué. Veuillez réessayer.",
		English: "Audio playback failed. Please try again.",
		German:  "Die Audiowiedergabe ist fehlgeschlagen. Bitte versuchen Sie es erneut.",
	},
	Generic: {
		French:  "Une erreur s'est produite. Veuillez réessayer.",
		English: "Something went wrong. Please try again.",
		German:  "Ein Fehler ist aufgetreten. Bitte versuchen Sie es erneut.",
	},
}

var helpTips = map[Language][]string{
	French: {
		"Parlez près du microphone, dans un environnement calme.",
		"Vérifiez que le microphone est autorisé pour ce site.",
		"Gardez vos messages courts, 15 secondes maximum.",
		"Vérifiez votre connexion internet.",
	},
	English: {
		"Speak close to the microphone, in a quiet environment.",
		"Check that the microphone is allowed for this site.",
		"Keep your messages short, 15 seconds at most.",
		"Check your internet connection.",
	},
	German: {
		"Sprechen Sie nah am Mikrofon, in ruhiger Umgebung.",
		"Prüfen Sie, ob das Mikrofon für diese Seite erlaubt ist.",
		"Halten Sie Ihre Nachrichten kurz, maximal 15 Sekunden.",
		"Überprüfen Sie Ihre Internetverbindung.",
	},
}

// classification order matters: more specific keywords are matched before
// the generic recording/playback buckets.
var keywordKinds = []struct {
	kind     Kind
	keywords []string
}{
	{PermissionDenied, []string{"permission", "denied", "notallowed"}},
	{DeviceNotFound, []string{"not found", "notfound", "no device", "nodevice"}},
	{NotSupported, []string{"not supported", "notsupported", "unsupported"}},
	{NetworkError, []string{"network", "connection", "timeout", "offline"}},
	{TranscriptionFailed, []string{"transcription", "transcribe"}},
	{AiServiceError, []string{"assistant", "ai service", "service error"}},
	{DurationExceeded, []string{"duration", "too long"}},
	{PlaybackFailed, []string{"playback", "decode", "play"}},
	{RecordingFailed, []string{"recording", "record", "encoder"}},
}

// KindOf matches the raw message against the taxonomy keywords. Falls back
// to Generic when nothing matches.
func KindOf(raw string) Kind {
	msg := strings.ToLower(raw)
	for _, kk := range keywordKinds {
		for _, kw := range kk.keywords {
			if strings.Contains(msg, kw) {
				return kk.kind
			}
		}
	}
	return Generic
}

// Error classifies a raw error for the given language.
func Error(err error, lang Language) Classified {
	if err == nil {
		return Message("", lang)
	}
	return Message(err.Error(), lang)
}

// Message classifies a raw failure string for the given language.
func Message(raw string, lang Language) Classified {
	kind := KindOf(raw)
	return As(kind, lang)
}

// As returns the localized sentence for an already known kind.
func As(kind Kind, lang Language) Classified {
	byLang, ok := messages[kind]
	if !ok {
		byLang = messages[Generic]
		kind = Generic
	}
	msg, ok := byLang[lang]
	if !ok {
		msg = byLang[French]
	}
	return Classified{Kind: kind, Message: msg}
}

// HelpTips returns a short list of remediation suggestions, independent of
// any specific failure.
func HelpTips(lang Language) []string {
	tips, ok := helpTips[lang]
	if !ok {
		tips = helpTips[French]
	}
	out := make([]string, len(tips))
	copy(out, tips)
	return out
}
